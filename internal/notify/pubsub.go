package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
)

// PubSubPublisher implements harvest.Publisher on Google Cloud Pub/Sub.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher wraps an existing topic handle.
func NewPubSubPublisher(topic *pubsub.Topic) *PubSubPublisher {
	return &PubSubPublisher{topic: topic}
}

// Publish marshals the payload to JSON and publishes it.
func (p *PubSubPublisher) Publish(ctx context.Context, payload any) (string, error) {
	if p.topic == nil {
		return "", fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// PubSubConsumer pumps a subscription through a Consumer. A
// MessagingFailure nacks the message so the broker redelivers it after the
// subscription's backoff; everything else acks.
type PubSubConsumer struct {
	sub      *pubsub.Subscription
	consumer *Consumer
	logger   *zap.Logger
}

// NewPubSubConsumer builds the subscription pump.
func NewPubSubConsumer(sub *pubsub.Subscription, consumer *Consumer, logger *zap.Logger) *PubSubConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubConsumer{sub: sub, consumer: consumer, logger: logger}
}

// Run blocks, receiving messages until the context finishes.
func (c *PubSubConsumer) Run(ctx context.Context) error {
	err := c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := c.consumer.Handle(ctx, msg.ID, msg.Data); err != nil {
			var msgErr *harvest.MessagingFailure
			if errors.As(err, &msgErr) {
				c.logger.Warn("trigger rejected for redelivery",
					zap.String("message_id", msg.ID),
					zap.String("stage", msgErr.Stage),
					zap.Error(err))
				msg.Nack()
				return
			}
			// Business failures surface through the completion event, not
			// through transport redelivery.
			c.logger.Error("trigger handler failed",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive: %w", err)
	}
	return nil
}
