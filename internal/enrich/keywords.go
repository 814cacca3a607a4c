package enrich

import (
	"context"
	"sort"
	"strings"

	"github.com/jobradar/harvester/internal/harvest"
)

// KeywordExtractor tags offers with the vocabulary terms appearing in their
// text. The vocabulary is maintained alongside the source definitions.
type KeywordExtractor struct {
	vocabulary []string
}

// NewKeywordExtractor builds an extractor over the given term vocabulary.
func NewKeywordExtractor(vocabulary []string) *KeywordExtractor {
	terms := make([]string, 0, len(vocabulary))
	for _, term := range vocabulary {
		if t := strings.TrimSpace(term); t != "" {
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)
	return &KeywordExtractor{vocabulary: terms}
}

// Name implements harvest.Enricher.
func (e *KeywordExtractor) Name() string { return "keywords" }

// Enrich implements harvest.Enricher. Matching is case-insensitive substring
// over the combined title + description, the same way denylists match.
func (e *KeywordExtractor) Enrich(_ context.Context, result *harvest.SearchResult) error {
	if len(e.vocabulary) == 0 {
		return nil
	}
	combined := strings.ToLower(result.Title + " " + result.Description)
	var matched []string
	for _, term := range e.vocabulary {
		if strings.Contains(combined, strings.ToLower(term)) {
			matched = append(matched, term)
		}
	}
	result.Keywords = matched
	return nil
}
