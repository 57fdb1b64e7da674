package events

import (
	"context"
	"encoding/json"

	"walletledger/internal/domain"

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Publisher emits transaction events to interested consumers. Publishing is
// fire-and-forget: a delivery failure must never fail the ledger operation
// that produced the record.
type Publisher interface {
	PublishTransaction(ctx context.Context, t *domain.Transaction)
}

// Nop discards events. Used in tests and deployments without Redis.
type Nop struct{}

func (Nop) PublishTransaction(context.Context, *domain.Transaction) {}

// StreamPublisher publishes transaction events to a Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

// NewStreamPublisher creates a publisher for the given stream.
func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

// PublishTransaction appends the transaction to the stream. Failures are
// logged and swallowed.
func (p *StreamPublisher) PublishTransaction(ctx context.Context, t *domain.Transaction) {
	payload, err := json.Marshal(t)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"transaction_id": t.ID,
			"error":          err.Error(),
		}).Error("Failed to marshal transaction event")
		return
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"transaction": payload},
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"transaction_id": t.ID,
			"stream":         p.stream,
			"error":          err.Error(),
		}).Error("Failed to publish transaction event")
		return
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"stream":         p.stream,
	}).Info("Published transaction event")
}
