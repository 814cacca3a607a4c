// Package notify implements the idempotent asynchronous messaging layer:
// completion events out, trigger messages in, both backed by a durable
// ledger. Delivery is at-least-once; the ledger is what keeps business
// logic from running twice.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// OutboundHandler names the ledger entries written for completion events.
const OutboundHandler = "extraction.completion"

// Notifier emits one completion event per terminal extraction. Every event
// is assigned a unique id and durably recorded before dispatch, so a later
// delivery can always be correlated back to its run.
type Notifier struct {
	ledger    harvest.LedgerStore
	publisher harvest.Publisher
	ids       harvest.IDGenerator
	clock     harvest.Clock
	logger    *zap.Logger
}

// NewNotifier builds a Notifier.
func NewNotifier(ledger harvest.LedgerStore, publisher harvest.Publisher, ids harvest.IDGenerator, clock harvest.Clock, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{ledger: ledger, publisher: publisher, ids: ids, clock: clock, logger: logger}
}

// NotifyCompletion records then dispatches one completion event. Record
// first, dispatch second: a crash between the two leaves a ledger entry
// without a message, never a message without a ledger entry.
func (n *Notifier) NotifyCompletion(ctx context.Context, event harvest.CompletionEvent) error {
	id, err := n.ids.NewID()
	if err != nil {
		return &harvest.MessagingFailure{Stage: "id", Err: err}
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return &harvest.MessagingFailure{Stage: "encode", Err: err}
	}

	entry := harvest.LedgerEntry{
		ID:      id,
		Handler: OutboundHandler,
		Payload: payload,
		Created: n.clock.Now(),
	}
	if err := n.ledger.Record(ctx, entry); err != nil {
		return &harvest.MessagingFailure{Stage: "ledger", Err: err}
	}

	messageID, err := n.publisher.Publish(ctx, event)
	if err != nil {
		return &harvest.MessagingFailure{Stage: "publish", Err: fmt.Errorf("event %s: %w", id, err)}
	}
	n.logger.Info("completion event published",
		zap.String("extraction_id", event.ExtractionID),
		zap.String("ledger_id", id),
		zap.String("message_id", messageID),
		zap.String("status", string(event.Status)))
	return nil
}
