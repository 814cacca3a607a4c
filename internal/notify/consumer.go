package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// InboundHandler names the ledger entries written for trigger messages.
const InboundHandler = "extraction.trigger"

// TriggerFunc is the business logic executed for one valid trigger message.
type TriggerFunc func(ctx context.Context, msg harvest.TriggerMessage) error

// Consumer processes inbound trigger messages with record-before-execute
// semantics: no business logic runs without a durable ledger entry. When
// the entry cannot be written the message is rejected for redelivery, which
// trades duplicate deliveries for the guarantee.
type Consumer struct {
	ledger  harvest.LedgerStore
	clock   harvest.Clock
	handler TriggerFunc
	logger  *zap.Logger
}

// NewConsumer builds a Consumer around the business handler.
func NewConsumer(ledger harvest.LedgerStore, clock harvest.Clock, handler TriggerFunc, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{ledger: ledger, clock: clock, handler: handler, logger: logger}
}

// Handle processes one raw inbound message. The returned error type decides
// the transport's reaction: a MessagingFailure must be rejected-and-requeued,
// anything else is the business handler's problem and still acknowledged at
// the transport level (the completion event carries the failure).
func (c *Consumer) Handle(ctx context.Context, messageID string, raw []byte) error {
	var msg harvest.TriggerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		// Malformed payloads are rejected before any ledger write.
		return &harvest.MessagingFailure{Stage: "decode", Err: err}
	}

	seen, err := c.ledger.Seen(ctx, messageID)
	if err != nil {
		return &harvest.MessagingFailure{Stage: "ledger-read", Err: err}
	}
	if seen {
		// Redelivered duplicate: recorded once, executed once.
		c.logger.Info("duplicate trigger skipped", zap.String("message_id", messageID))
		return nil
	}

	entry := harvest.LedgerEntry{
		ID:      messageID,
		Handler: InboundHandler,
		Payload: raw,
		Created: c.clock.Now(),
	}
	if err := c.ledger.Record(ctx, entry); err != nil {
		return &harvest.MessagingFailure{Stage: "ledger-write", Err: err}
	}

	return c.handler(ctx, msg)
}
