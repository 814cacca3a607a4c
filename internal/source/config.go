// Package source models per-source crawl configuration and its loading.
//
// One static definition exists per job source, keyed by the source identity
// string (for example "de.indeed" or "pracuj.pl") and grouped by country.
// Definitions are loaded once at process start and never mutated by running
// extractions.
package source

import (
	"time"

	"github.com/jobradar/harvester/internal/harvest"
)

// Kind discriminates the two structurally different source families.
type Kind string

// Source kinds. Exactly one selector set or field-path set is populated
// per source, matching its kind.
const (
	KindDOM Kind = "dom"
	KindAPI Kind = "api"
)

// Placement says where a URL fragment goes when building a search URI.
type Placement string

// Placement values for location and pagination rules.
const (
	PlacementQuery   Placement = "query"
	PlacementSegment Placement = "segment"
)

// Config is the immutable per-source configuration.
type Config struct {
	Name    string `mapstructure:"name"`
	Country string `mapstructure:"country"`
	Kind    Kind   `mapstructure:"kind"`

	SearchURI SearchURI `mapstructure:"search_uri"`

	// Exactly one of the two is non-nil, depending on Kind.
	Selectors  *SelectorSet  `mapstructure:"selectors"`
	FieldPaths *FieldPathSet `mapstructure:"field_paths"`

	Engine     harvest.Engine                            `mapstructure:"engine"`
	Wait       map[harvest.PageKind]harvest.WaitDirective `mapstructure:"wait"`
	CrawlDelay time.Duration                             `mapstructure:"crawl_delay"`

	// NeedsOverride flags sources whose detail URLs cannot be synthesized
	// by the generic rules. Loading fails when the flag is set but no
	// override strategy is registered for the source.
	NeedsOverride bool `mapstructure:"needs_override"`
}

// SearchURI describes how listing-page URLs are built for a source.
type SearchURI struct {
	BaseURI    BaseURI        `mapstructure:"base_uri"`
	Keywords   KeywordRule    `mapstructure:"keywords"`
	Location   LocationRule   `mapstructure:"location"`
	Pagination PaginationRule `mapstructure:"pagination"`
}

// BaseURI holds the search-URI templates.
type BaseURI struct {
	Standard          string `mapstructure:"standard"`
	SortedLatestFirst string `mapstructure:"sorted_latest_first"`
}

// KeywordRule controls how multiple keywords are glued into the URI.
// Order of operations: substitute spaces, then encode, then join.
type KeywordRule struct {
	Param     string `mapstructure:"param"`
	Separator string `mapstructure:"separator"`
	Encode    bool   `mapstructure:"encode"`
	SpaceChar string `mapstructure:"space_char"`
}

// LocationRule places the location either as a query parameter or as a URI
// path segment, with optional prefix and trailing-slash normalization.
type LocationRule struct {
	Placement     Placement    `mapstructure:"placement"`
	Param         string       `mapstructure:"param"`
	SegmentPrefix string       `mapstructure:"segment_prefix"`
	TrailingSlash bool         `mapstructure:"trailing_slash"`
	SpaceChar     string       `mapstructure:"space_char"`
	Distance      DistanceRule `mapstructure:"distance"`
}

// DistanceRule places the search radius when a distance is requested.
type DistanceRule struct {
	Placement Placement `mapstructure:"placement"`
	Param     string    `mapstructure:"param"`
}

// PaginationRule injects the page number per configuration.
type PaginationRule struct {
	Placement Placement `mapstructure:"placement"`
	Param     string    `mapstructure:"param"`
}

// Field addresses one value in a DOM page: a CSS selector plus an optional
// attribute (empty attribute means the node text).
type Field struct {
	Selector  string `mapstructure:"selector"`
	Attr      string `mapstructure:"attr"`
	Mandatory bool   `mapstructure:"mandatory"`
}

// Set reports whether the field is configured at all.
func (f Field) Set() bool { return f.Selector != "" }

// SelectorSet addresses DOM sources.
type SelectorSet struct {
	ListItem     string `mapstructure:"list_item"`
	Title        Field  `mapstructure:"title"`
	DetailLink   Field  `mapstructure:"detail_link"`
	Location     Field  `mapstructure:"location"`
	Company      Field  `mapstructure:"company"`
	Salary       Field  `mapstructure:"salary"`
	Description  Field  `mapstructure:"description"`
	DetailIframe string `mapstructure:"detail_iframe"`
	ContactEmail Field  `mapstructure:"contact_email"`
}

// Path addresses one value in a JSON API payload by dot path.
type Path struct {
	Path      string `mapstructure:"path"`
	Mandatory bool   `mapstructure:"mandatory"`
}

// Set reports whether the path is configured at all.
func (p Path) Set() bool { return p.Path != "" }

// FieldPathSet addresses API sources.
type FieldPathSet struct {
	Items       Path `mapstructure:"items"`
	Title       Path `mapstructure:"title"`
	Description Path `mapstructure:"description"`
	DetailURL   Path `mapstructure:"detail_url"`
	ExternalID  Path `mapstructure:"external_id"`
	Location    Path `mapstructure:"location"`
	Company     Path `mapstructure:"company"`
	Salary      Path `mapstructure:"salary"`

	// Detail-URL synthesis rules used when DetailURL is absent or unset.
	BaseHost             string `mapstructure:"base_host"`
	DetailBaseURI        string `mapstructure:"detail_base_uri"`
	IDAfterTrailingSlash bool   `mapstructure:"id_after_trailing_slash"`
	IDParam              string `mapstructure:"id_param"`
}
