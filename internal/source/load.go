package source

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/jobradar/harvester/internal/harvest"
)

// Catalog holds every loaded source configuration, keyed by identity.
type Catalog struct {
	sources map[string]*Config
}

// Load reads the source-definition file and validates every entry. The file
// carries a top-level "sources" map keyed by source identity. Any validation
// failure aborts loading; no resolver is ever built from a bad catalog.
//
// Source identities contain dots ("pracuj.pl", "de.indeed"), so entries are
// decoded as one map rather than addressed through viper key paths.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read source definitions: %w", err)
	}
	return FromViper(v)
}

// FromViper builds a catalog from an already-populated viper instance.
func FromViper(v *viper.Viper) (*Catalog, error) {
	var raw map[string]*Config
	if err := v.UnmarshalKey("sources", &raw); err != nil {
		return nil, &harvest.ConfigurationError{Reason: fmt.Sprintf("decode sources: %v", err)}
	}
	if len(raw) == 0 {
		return nil, &harvest.ConfigurationError{Reason: "no sources defined"}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	catalog := &Catalog{sources: make(map[string]*Config, len(names))}
	for _, name := range names {
		cfg := raw[name]
		if cfg == nil {
			return nil, &harvest.ConfigurationError{Source: name, Reason: "definition is not a map"}
		}
		cfg.Name = name
		if err := validate(cfg); err != nil {
			return nil, err
		}
		catalog.sources[name] = cfg
	}
	return catalog, nil
}

func validate(cfg *Config) error {
	// The standard base URI is the one key every source must carry.
	if cfg.SearchURI.BaseURI.Standard == "" {
		return &harvest.ConfigurationError{
			Source: cfg.Name,
			Key:    "search_uri.base_uri.standard",
			Reason: "missing mandatory key",
		}
	}

	switch cfg.Kind {
	case KindDOM:
		if cfg.Selectors == nil {
			return &harvest.ConfigurationError{Source: cfg.Name, Key: "selectors", Reason: "dom source without selector set"}
		}
		if cfg.FieldPaths != nil {
			return &harvest.ConfigurationError{Source: cfg.Name, Key: "field_paths", Reason: "dom source must not carry field paths"}
		}
		if cfg.Selectors.ListItem == "" {
			return &harvest.ConfigurationError{Source: cfg.Name, Key: "selectors.list_item", Reason: "missing mandatory key"}
		}
	case KindAPI:
		if cfg.FieldPaths == nil {
			return &harvest.ConfigurationError{Source: cfg.Name, Key: "field_paths", Reason: "api source without field-path set"}
		}
		if cfg.Selectors != nil {
			return &harvest.ConfigurationError{Source: cfg.Name, Key: "selectors", Reason: "api source must not carry selectors"}
		}
		if !cfg.FieldPaths.Items.Set() {
			return &harvest.ConfigurationError{Source: cfg.Name, Key: "field_paths.items", Reason: "missing mandatory key"}
		}
	default:
		return &harvest.ConfigurationError{Source: cfg.Name, Key: "kind", Reason: fmt.Sprintf("unknown source kind %q", cfg.Kind)}
	}

	if cfg.Engine == "" {
		cfg.Engine = harvest.EngineHTTP
	}
	if cfg.Engine != harvest.EngineHTTP && cfg.Engine != harvest.EngineBrowser {
		return &harvest.ConfigurationError{Source: cfg.Name, Key: "engine", Reason: fmt.Sprintf("unknown engine %q", cfg.Engine)}
	}
	if cfg.SearchURI.Pagination.Placement == "" {
		cfg.SearchURI.Pagination.Placement = PlacementQuery
	}
	if cfg.SearchURI.Pagination.Placement == PlacementQuery && cfg.SearchURI.Pagination.Param == "" {
		cfg.SearchURI.Pagination.Param = "page"
	}
	return nil
}

// Get returns the configuration for one source identity.
func (c *Catalog) Get(name string) (*Config, bool) {
	cfg, ok := c.sources[name]
	return cfg, ok
}

// Names lists all source identities, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByCountry lists the configurations registered for one country.
func (c *Catalog) ByCountry(country string) []*Config {
	var out []*Config
	for _, name := range c.Names() {
		if cfg := c.sources[name]; cfg.Country == country {
			out = append(out, cfg)
		}
	}
	return out
}
