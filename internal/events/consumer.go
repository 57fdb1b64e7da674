package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"walletledger/internal/domain"

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

var errInvalidMessage = errors.New("invalid event message format")

// Consumer reads transaction events from a Redis stream through a consumer
// group and logs them. Failed messages are not acknowledged so the group
// redelivers them.
type Consumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// NewConsumer creates a consumer bound to stream/group.
func NewConsumer(client *redis.Client, stream, group, consumer string) *Consumer {
	return &Consumer{client: client, stream: stream, group: group, consumer: consumer}
}

// Run consumes events until ctx is cancelled. Intended to run in its own
// goroutine next to the HTTP server.
func (c *Consumer) Run(ctx context.Context) {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		logrus.WithFields(logrus.Fields{
			"stream": c.stream,
			"group":  c.group,
			"error":  err.Error(),
		}).Error("Failed to create consumer group")
		return
	}
	logrus.WithFields(logrus.Fields{
		"stream": c.stream,
		"group":  c.group,
	}).Info("Transaction event consumer started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err == redis.Nil {
			continue // No messages
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithField("error", err.Error()).Error("Failed to read transaction events")
			time.Sleep(time.Second)
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := c.handle(msg); err != nil {
					logrus.WithFields(logrus.Fields{
						"message_id": msg.ID,
						"error":      err.Error(),
					}).Error("Failed to process transaction event")
					continue
				}
				if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
					logrus.WithFields(logrus.Fields{
						"message_id": msg.ID,
						"error":      err.Error(),
					}).Error("Failed to ack transaction event")
				}
			}
		}
	}
}

func (c *Consumer) handle(msg redis.XMessage) error {
	raw, ok := msg.Values["transaction"].(string)
	if !ok {
		return errInvalidMessage
	}
	var t domain.Transaction
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"user_id":        t.UserID,
		"type":           t.Type,
		"amount":         t.Amount.String(),
		"status":         t.Status,
	}).Info("Consumed transaction event")
	return nil
}
