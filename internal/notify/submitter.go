package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// TriggerSubmitter publishes trigger messages onto the async transport. The
// API server and the scheduler both submit through it, so every run enters
// the pipeline through the same consumer.
type TriggerSubmitter struct {
	publisher harvest.Publisher
	logger    *zap.Logger
}

// NewTriggerSubmitter builds a TriggerSubmitter.
func NewTriggerSubmitter(publisher harvest.Publisher, logger *zap.Logger) *TriggerSubmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerSubmitter{publisher: publisher, logger: logger}
}

// Submit publishes one trigger message.
func (s *TriggerSubmitter) Submit(ctx context.Context, msg harvest.TriggerMessage) error {
	messageID, err := s.publisher.Publish(ctx, msg)
	if err != nil {
		return &harvest.MessagingFailure{Stage: "publish", Err: err}
	}
	s.logger.Info("trigger published",
		zap.String("correlation_id", msg.CorrelationID),
		zap.String("message_id", messageID))
	return nil
}
