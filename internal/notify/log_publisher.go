package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// LogPublisher implements harvest.Publisher by logging the payload. Used in
// local runs without a messaging transport.
type LogPublisher struct {
	logger *zap.Logger
	seq    atomic.Int64
}

// NewLogPublisher builds a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements harvest.Publisher.
func (p *LogPublisher) Publish(_ context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	id := fmt.Sprintf("log-%d", p.seq.Add(1))
	p.logger.Info("message published", zap.String("message_id", id), zap.ByteString("payload", data))
	return id, nil
}
