package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Consumer reads events from a stream through a consumer group, giving
// downstream collaborators at-least-once delivery. Unacked messages are
// redelivered, so handlers must be idempotent on the order id.
type Consumer struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
}

// NewConsumer creates the group if it does not exist yet and returns a reader.
func NewConsumer(ctx context.Context, client *redis.Client, stream, group, consumer string) (*Consumer, error) {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, err
	}
	return &Consumer{rdb: client, stream: stream, group: group, consumer: consumer}, nil
}

// Fetch blocks up to the given duration and returns the next batch of messages.
func (c *Consumer) Fetch(ctx context.Context, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var out []Message
	now := time.Now()
	for _, s := range streams {
		for _, m := range s.Messages {
			raw, ok := m.Values["payload"].(string)
			if !ok {
				continue
			}
			var env Envelope
			if err := json.Unmarshal([]byte(raw), &env); err != nil {
				continue
			}
			out = append(out, Message{StreamID: m.ID, Envelope: env, Delivered: now})
		}
	}
	return out, nil
}

// Ack marks a message as processed for this group.
func (c *Consumer) Ack(ctx context.Context, streamID string) error {
	return c.rdb.XAck(ctx, c.stream, c.group, streamID).Err()
}
