// Package resolver turns source configuration plus search parameters into
// concrete crawlable URLs. Resolvers are pure: same inputs, same URL, no
// network I/O.
package resolver

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

// Query bundles everything a search-URL resolution depends on.
type Query struct {
	Params harvest.SearchParameters
	Page   int
	// SortedLatest selects the "sorted latest first" template variant when
	// the source defines one.
	SortedLatest bool
}

// SearchResolver builds listing-page URLs for one source.
type SearchResolver interface {
	Source() string
	SearchURL(q Query) (string, error)
}

// DetailURLResolver builds detail-page URLs from one listing item. Only
// API-backed sources need it; DOM sources carry the link in the page.
type DetailURLResolver interface {
	DetailURL(item any) (string, error)
}

// buildSearchURL is the URI-building contract shared by both source kinds.
//
// The query string is assembled by hand, in a fixed order, because several
// sources require separators (commas, plus signs) that url.Values would
// percent-escape. Keyword encoding is governed solely by the source's
// keyword rule.
func buildSearchURL(cfg *source.Config, q Query) (string, error) {
	base := cfg.SearchURI.BaseURI.Standard
	if q.SortedLatest && cfg.SearchURI.BaseURI.SortedLatestFirst != "" {
		base = cfg.SearchURI.BaseURI.SortedLatestFirst
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", &harvest.ResolutionError{Source: cfg.Name, Field: "base_uri", Err: err}
	}

	var pairs []string
	if u.RawQuery != "" {
		pairs = append(pairs, u.RawQuery)
	}

	if kw := glueKeywords(cfg.SearchURI.Keywords, q.Params.Keywords); kw != "" {
		if cfg.SearchURI.Keywords.Param != "" {
			pairs = append(pairs, cfg.SearchURI.Keywords.Param+"="+kw)
		} else {
			// No parameter name means keywords travel as a path segment.
			appendSegment(u, kw, false)
		}
	}

	if q.Params.Location != "" {
		pairs = placeLocation(u, pairs, cfg, q.Params)
	}

	pairs = placePage(u, pairs, cfg.SearchURI.Pagination, q.Page)

	u.RawQuery = joinPairs(pairs)
	return u.String(), nil
}

// placePage injects the page number as a query parameter or path segment.
func placePage(u *url.URL, pairs []string, rule source.PaginationRule, page int) []string {
	if page < 1 {
		page = 1
	}
	switch rule.Placement {
	case source.PlacementSegment:
		segment := strconv.Itoa(page)
		if rule.Param != "" {
			segment = rule.Param + segment
		}
		appendSegment(u, segment, false)
		return pairs
	default:
		name := rule.Param
		if name == "" {
			name = "page"
		}
		return append(pairs, name+"="+strconv.Itoa(page))
	}
}

func joinPairs(pairs []string) string {
	switch len(pairs) {
	case 0:
		return ""
	case 1:
		return pairs[0]
	}
	joined := pairs[0]
	for _, p := range pairs[1:] {
		joined += "&" + p
	}
	return joined
}

// appendSegment appends one path segment, normalizing slashes.
func appendSegment(u *url.URL, segment string, trailingSlash bool) {
	path := u.Path
	if len(path) == 0 || path[len(path)-1] != '/' {
		path += "/"
	}
	path += segment
	if trailingSlash {
		path += "/"
	}
	u.Path = path
}

// hostOf returns scheme://host for a parsed URL string, used when detail
// values come back host-less.
func hostOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse base host: %w", err)
	}
	return u.Scheme + "://" + u.Host, nil
}
