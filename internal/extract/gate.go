package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// StoreGate implements harvest.RunGate against the extraction store: a run
// whose record has been moved to a terminal state externally is told to stop
// at the next page boundary. Lookup failures allow the run to continue.
type StoreGate struct {
	store  harvest.ExtractionStore
	logger *zap.Logger
}

// NewStoreGate builds a StoreGate.
func NewStoreGate(store harvest.ExtractionStore, logger *zap.Logger) *StoreGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreGate{store: store, logger: logger}
}

// Allowed implements harvest.RunGate.
func (g *StoreGate) Allowed(ctx context.Context, extractionID string) bool {
	ex, err := g.store.GetExtraction(ctx, extractionID)
	if err != nil {
		g.logger.Warn("gate lookup failed", zap.String("extraction_id", extractionID), zap.Error(err))
		return true
	}
	return !ex.Status.Terminal()
}
