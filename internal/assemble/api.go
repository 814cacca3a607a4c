package assemble

import (
	"time"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/jsonpath"
	"github.com/jobradar/harvester/internal/source"
)

// APIAssembler extracts results from decoded JSON documents using the
// source's dot-path configuration.
type APIAssembler struct {
	cfg *source.Config
	now func() time.Time
}

// NewAPI builds an assembler for one API source.
func NewAPI(cfg *source.Config, clock harvest.Clock) *APIAssembler {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &APIAssembler{cfg: cfg, now: now}
}

// AssembleListing implements Assembler.
func (a *APIAssembler) AssembleListing(page harvest.RawPage) ([]ListingItem, error) {
	paths := a.cfg.FieldPaths

	arr, ok := jsonpath.Slice(page.JSON, paths.Items.Path)
	if !ok {
		if paths.Items.Mandatory {
			return nil, &harvest.ConfigurationError{
				Source: a.cfg.Name,
				Key:    paths.Items.Path,
				Reason: "mandatory items path absent in payload",
			}
		}
		return nil, nil
	}

	items := make([]ListingItem, 0, len(arr))
	for _, raw := range arr {
		result := harvest.SearchResult{
			Source:    a.cfg.Name,
			FetchedAt: a.now(),
		}
		if err := a.fill(raw, paths.Title, &result.Title); err != nil {
			return nil, err
		}
		if err := a.fill(raw, paths.Description, &result.Description); err != nil {
			return nil, err
		}
		if err := a.fill(raw, paths.ExternalID, &result.ExternalID); err != nil {
			return nil, err
		}
		if err := a.fill(raw, paths.Company, &result.CompanyName); err != nil {
			return nil, err
		}
		if err := a.fill(raw, paths.Salary, &result.Salary); err != nil {
			return nil, err
		}
		var location string
		if err := a.fill(raw, paths.Location, &location); err != nil {
			return nil, err
		}
		if location != "" {
			result.Locations = []string{location}
		}
		items = append(items, ListingItem{Result: result, Raw: raw})
	}
	return items, nil
}

// AssembleDetail implements Assembler: the detail payload fills fields the
// listing stub did not carry.
func (a *APIAssembler) AssembleDetail(page harvest.RawPage, base harvest.SearchResult) (harvest.SearchResult, error) {
	paths := a.cfg.FieldPaths

	var description string
	if err := a.fill(page.JSON, paths.Description, &description); err != nil {
		return base, err
	}
	if description != "" {
		base.Description = description
	}
	if base.CompanyName == "" {
		if err := a.fill(page.JSON, paths.Company, &base.CompanyName); err != nil {
			return base, err
		}
	}
	if len(base.Locations) == 0 {
		var location string
		if err := a.fill(page.JSON, paths.Location, &location); err != nil {
			return base, err
		}
		if location != "" {
			base.Locations = []string{location}
		}
	}
	if base.Salary == "" {
		if err := a.fill(page.JSON, paths.Salary, &base.Salary); err != nil {
			return base, err
		}
	}
	return base, nil
}

func (a *APIAssembler) fill(doc any, path source.Path, dst *string) error {
	if !path.Set() {
		return nil
	}
	value, ok := jsonpath.String(doc, path.Path)
	if !ok {
		if path.Mandatory {
			return &harvest.ConfigurationError{
				Source: a.cfg.Name,
				Key:    path.Path,
				Reason: "mandatory field path absent in payload",
			}
		}
		return nil
	}
	*dst = value
	return nil
}
