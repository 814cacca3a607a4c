package assemble

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

// DOMAssembler extracts results from HTML pages using the source's
// selector+attribute configuration.
type DOMAssembler struct {
	cfg *source.Config
	now func() time.Time
}

// NewDOM builds an assembler for one DOM source.
func NewDOM(cfg *source.Config, clock harvest.Clock) *DOMAssembler {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &DOMAssembler{cfg: cfg, now: now}
}

// AssembleListing implements Assembler.
func (a *DOMAssembler) AssembleListing(page harvest.RawPage) ([]ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return nil, &harvest.ConfigurationError{Source: a.cfg.Name, Reason: "listing page is not parseable HTML"}
	}

	sel := a.cfg.Selectors
	nodes := doc.Find(sel.ListItem)
	if nodes.Length() == 0 {
		// An empty listing is a legitimate end-of-pagination signal.
		return nil, nil
	}

	var items []ListingItem
	var cfgErr error
	nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		result := harvest.SearchResult{
			Source:    a.cfg.Name,
			FetchedAt: a.now(),
		}
		if err := a.fill(node, sel.Title, &result.Title); err != nil {
			cfgErr = err
			return false
		}
		var detail string
		if err := a.fill(node, sel.DetailLink, &detail); err != nil {
			cfgErr = err
			return false
		}
		result.DetailURL = absolutizeHref(page.URL, detail)
		var location string
		if err := a.fill(node, sel.Location, &location); err != nil {
			cfgErr = err
			return false
		}
		if location != "" {
			result.Locations = []string{location}
		}
		if err := a.fill(node, sel.Company, &result.CompanyName); err != nil {
			cfgErr = err
			return false
		}
		if err := a.fill(node, sel.Salary, &result.Salary); err != nil {
			cfgErr = err
			return false
		}
		items = append(items, ListingItem{Result: result})
		return true
	})
	if cfgErr != nil {
		return nil, cfgErr
	}
	return items, nil
}

// AssembleDetail implements Assembler: detail-page fields are merged into
// the listing-derived result without overwriting populated listing values.
func (a *DOMAssembler) AssembleDetail(page harvest.RawPage, base harvest.SearchResult) (harvest.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return base, &harvest.ConfigurationError{Source: a.cfg.Name, Reason: "detail page is not parseable HTML"}
	}

	sel := a.cfg.Selectors
	root := doc.Selection

	var description string
	if err := a.fill(root, sel.Description, &description); err != nil {
		return base, err
	}
	if description != "" {
		base.Description = description
	}
	if base.CompanyName == "" {
		var company string
		if err := a.fill(root, sel.Company, &company); err != nil {
			return base, err
		}
		base.CompanyName = company
	}
	var email string
	if err := a.fill(root, sel.ContactEmail, &email); err != nil {
		return base, err
	}
	if email != "" {
		base.ContactEmail = email
	}
	if len(base.Locations) == 0 {
		var location string
		if err := a.fill(root, sel.Location, &location); err != nil {
			return base, err
		}
		if location != "" {
			base.Locations = []string{location}
		}
	}
	return base, nil
}

// fill extracts one configured field from the node into dst. A mandatory
// field that matches nothing is a configuration error.
func (a *DOMAssembler) fill(node *goquery.Selection, field source.Field, dst *string) error {
	if !field.Set() {
		return nil
	}
	found := node.Find(field.Selector).First()
	if found.Length() == 0 {
		if field.Mandatory {
			return &harvest.ConfigurationError{
				Source: a.cfg.Name,
				Key:    field.Selector,
				Reason: "mandatory selector matched nothing",
			}
		}
		return nil
	}
	var value string
	if field.Attr != "" {
		value, _ = found.Attr(field.Attr)
	} else {
		value = found.Text()
	}
	*dst = strings.TrimSpace(value)
	return nil
}

// absolutizeHref resolves a relative href against the listing page URL.
func absolutizeHref(pageURL, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
