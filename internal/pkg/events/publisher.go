package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultMaxLen = 10000

// Publisher appends domain events to a Redis stream. A nil Publisher (or one
// backed by a nil client) drops events silently so callers need no nil checks.
type Publisher struct {
	rdb     *redis.Client
	stream  string
	timeout time.Duration
}

// NewPublisher creates a stream publisher. client may be nil.
func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{rdb: client, stream: stream, timeout: 3 * time.Second}
}

// Publish appends one event to the stream. The returned error is informational:
// event delivery is best-effort and callers must not fail their operation on it.
func (p *Publisher) Publish(ctx context.Context, event string, data interface{}) error {
	if p == nil || p.rdb == nil {
		log.Debug().Str("event", event).Msg("event publisher disabled, dropping event")
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	body, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: defaultMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": string(body)},
	}).Err()
}
