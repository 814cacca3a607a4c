package resolver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/source"
)

// OverrideFunc is a bespoke detail-URL strategy for sources whose slugs do
// not follow the generic synthesis rules.
type OverrideFunc func(cfg *source.Config, item any) (string, error)

// Registry maps every catalog source to its resolver, built once at
// configuration-load time. A source flagged as needing an override without a
// registered strategy fails construction outright; silently shipping wrong
// URLs for a new source is worse than refusing to start.
type Registry struct {
	search    map[string]SearchResolver
	detail    map[string]DetailURLResolver
	overrides map[string]OverrideFunc
}

// NewRegistry builds resolvers for every source in the catalog.
func NewRegistry(catalog *source.Catalog, overrides map[string]OverrideFunc, logger *zap.Logger) (*Registry, error) {
	reg := &Registry{
		search:    make(map[string]SearchResolver),
		detail:    make(map[string]DetailURLResolver),
		overrides: overrides,
	}

	for _, name := range catalog.Names() {
		cfg, _ := catalog.Get(name)

		if cfg.NeedsOverride {
			fn, ok := overrides[name]
			if !ok {
				return nil, fmt.Errorf("source %q: %w", name, harvest.ErrOverrideMissing)
			}
			reg.detail[name] = overrideResolver{cfg: cfg, fn: fn}
		}

		switch cfg.Kind {
		case source.KindDOM:
			reg.search[name] = NewDOM(cfg)
		case source.KindAPI:
			api := NewAPI(cfg, logger)
			reg.search[name] = api
			if _, overridden := reg.detail[name]; !overridden {
				reg.detail[name] = api
			}
		}
	}
	return reg, nil
}

// Search returns the search resolver for a source identity.
func (r *Registry) Search(name string) (SearchResolver, bool) {
	res, ok := r.search[name]
	return res, ok
}

// Detail returns the detail-URL resolver for a source identity, if any.
func (r *Registry) Detail(name string) (DetailURLResolver, bool) {
	res, ok := r.detail[name]
	return res, ok
}

type overrideResolver struct {
	cfg *source.Config
	fn  OverrideFunc
}

func (o overrideResolver) DetailURL(item any) (string, error) {
	return o.fn(o.cfg, item)
}
