package resolver

import (
	"github.com/jobradar/harvester/internal/source"
)

// DOMResolver builds listing URLs for DOM-scraped sources. Detail URLs for
// these sources are lifted straight from the listing markup by the
// assembler, so no detail resolution lives here.
type DOMResolver struct {
	cfg *source.Config
}

// NewDOM builds a resolver for one DOM source.
func NewDOM(cfg *source.Config) *DOMResolver {
	return &DOMResolver{cfg: cfg}
}

// Source returns the source identity this resolver serves.
func (r *DOMResolver) Source() string { return r.cfg.Name }

// SearchURL implements SearchResolver.
func (r *DOMResolver) SearchURL(q Query) (string, error) {
	return buildSearchURL(r.cfg, q)
}
