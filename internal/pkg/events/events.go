package events

import (
	"encoding/json"
	"time"
)

// Event names published by the order ledger.
const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
)

// Envelope is the wire shape of a domain event on the stream.
// Delivery is at-least-once; consumers must be idempotent on data.id.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Message is a delivered event with its stream bookkeeping attached.
type Message struct {
	StreamID  string
	Envelope  Envelope
	Delivered time.Time
}
