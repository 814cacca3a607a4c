// Package enrich holds the post-admission enrichment collaborators. Each one
// is narrow and one-shot: a failure is logged by the orchestrator and that
// enrichment is skipped for that offer only.
package enrich

import (
	"context"
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/jobradar/harvester/internal/harvest"
)

// detectionWords caps how much of the description feeds language detection;
// the first sentences carry the signal.
const detectionWords = 100

// LanguageDetector fills the posting's language fields from its title and
// description.
type LanguageDetector struct{}

// NewLanguageDetector builds the detector.
func NewLanguageDetector() *LanguageDetector { return &LanguageDetector{} }

// Name implements harvest.Enricher.
func (d *LanguageDetector) Name() string { return "language" }

// Enrich implements harvest.Enricher.
func (d *LanguageDetector) Enrich(_ context.Context, result *harvest.SearchResult) error {
	text := detectionText(result.Title, result.Description)
	if text == "" {
		return errors.New("no text to detect language from")
	}
	info := whatlanggo.Detect(text)
	result.Language = info.Lang.Iso6393()
	result.LanguageScore = info.Confidence
	return nil
}

func detectionText(title, description string) string {
	words := strings.Fields(description)
	if len(words) > detectionWords {
		words = words[:detectionWords]
	}
	return strings.TrimSpace(title + " " + strings.Join(words, " "))
}
