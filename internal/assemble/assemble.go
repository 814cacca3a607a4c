// Package assemble parses fetched page payloads into normalized search
// results using the source's selector or field-path configuration.
package assemble

import (
	"github.com/jobradar/harvester/internal/harvest"
)

// ListingItem pairs one assembled result with the raw listing node it came
// from. API sources need the raw item later to synthesize the detail URL.
type ListingItem struct {
	Result harvest.SearchResult
	Raw    any
}

// Assembler turns raw pages into search results for one source kind.
//
// AssembleListing extracts every offer stub on a listing page.
// AssembleDetail merges detail-page fields into a result assembled from the
// listing. A field declared mandatory in configuration but absent in the
// payload is a ConfigurationError, not a per-offer data-quality gap.
type Assembler interface {
	AssembleListing(page harvest.RawPage) ([]ListingItem, error)
	AssembleDetail(page harvest.RawPage, base harvest.SearchResult) (harvest.SearchResult, error)
}
