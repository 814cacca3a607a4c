package enrich

import (
	"context"
	"strings"

	"github.com/jobradar/harvester/internal/harvest"
)

// CompanyNormalizer tidies the scraped company fields: trims decorative
// suffixes sources append to names and falls back to the posting's own
// locations when the source gives no company locations.
type CompanyNormalizer struct {
	suffixes []string
}

// NewCompanyNormalizer builds the normalizer. Suffixes are matched
// case-insensitively at the end of the company name.
func NewCompanyNormalizer(suffixes []string) *CompanyNormalizer {
	return &CompanyNormalizer{suffixes: suffixes}
}

// Name implements harvest.Enricher.
func (n *CompanyNormalizer) Name() string { return "company" }

// Enrich implements harvest.Enricher.
func (n *CompanyNormalizer) Enrich(_ context.Context, result *harvest.SearchResult) error {
	name := strings.TrimSpace(result.CompanyName)
	lowered := strings.ToLower(name)
	for _, suffix := range n.suffixes {
		s := strings.ToLower(strings.TrimSpace(suffix))
		if s == "" {
			continue
		}
		if strings.HasSuffix(lowered, s) {
			name = strings.TrimSpace(name[:len(name)-len(s)])
			lowered = strings.ToLower(name)
		}
	}
	result.CompanyName = name

	if len(result.CompanyLocations) == 0 && len(result.Locations) > 0 {
		result.CompanyLocations = append([]string(nil), result.Locations...)
	}
	return nil
}
