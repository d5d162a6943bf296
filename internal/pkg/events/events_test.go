package events_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greentrade/greentrade-api/internal/pkg/events"
)

func TestPublishConsumeRoundTrip(t *testing.T) {
	rdb, stream := setupRedis(t)
	ctx := context.Background()

	pub := events.NewPublisher(rdb, stream)
	consumer, err := events.NewConsumer(ctx, rdb, stream, "settlement-test", "worker-1")
	if err != nil {
		t.Fatalf("create consumer: %v", err)
	}

	type payload struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}

	if err := pub.Publish(ctx, events.OrderCreated, payload{OrderID: "o-1", Status: "PENDING"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Publish(ctx, events.OrderUpdated, payload{OrderID: "o-1", Status: "COMPLETED"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs, err := consumer.Fetch(ctx, 10, time.Second)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Envelope.Event != events.OrderCreated || msgs[1].Envelope.Event != events.OrderUpdated {
		t.Fatalf("unexpected event order: %s, %s", msgs[0].Envelope.Event, msgs[1].Envelope.Event)
	}

	var got payload
	if err := json.Unmarshal(msgs[1].Envelope.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.OrderID != "o-1" || got.Status != "COMPLETED" {
		t.Fatalf("unexpected payload: %+v", got)
	}

	for _, m := range msgs {
		if err := consumer.Ack(ctx, m.StreamID); err != nil {
			t.Fatalf("ack: %v", err)
		}
	}

	// Everything acked, nothing left for the group.
	msgs, err = consumer.Fetch(ctx, 10, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("fetch after ack: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages after ack, got %d", len(msgs))
	}
}

func TestUnackedMessageStaysPending(t *testing.T) {
	rdb, stream := setupRedis(t)
	ctx := context.Background()

	pub := events.NewPublisher(rdb, stream)
	consumer, err := events.NewConsumer(ctx, rdb, stream, "settlement-test", "worker-1")
	if err != nil {
		t.Fatalf("create consumer: %v", err)
	}

	if err := pub.Publish(ctx, events.OrderCreated, map[string]string{"order_id": "o-2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs, err := consumer.Fetch(ctx, 10, time.Second)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	// Not acked: the message remains in the group's pending list for
	// redelivery after a consumer crash.
	pending, err := rdb.XPending(ctx, stream, "settlement-test").Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected 1 pending message, got %d", pending.Count)
	}
}

func TestNilPublisherDropsEvents(t *testing.T) {
	pub := events.NewPublisher(nil, "unused")
	if err := pub.Publish(context.Background(), events.OrderCreated, map[string]string{"order_id": "o-3"}); err != nil {
		t.Fatalf("nil-backed publisher must not error, got %v", err)
	}
}

func setupRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	stream := fmt.Sprintf("orders.events.test.%d", time.Now().UnixNano())
	t.Cleanup(func() {
		rdb.Del(context.Background(), stream)
		rdb.Close()
	})
	return rdb, stream
}
