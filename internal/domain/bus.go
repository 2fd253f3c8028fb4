package domain

import (
	"context"
	"encoding/json"
	"time"
)

// StreamMessage represents a single entry from an event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and a bounded replay stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// EventsChannel is the bus channel and stream carrying every Event.
const EventsChannel = "events"

// Event types published on EventsChannel.
const (
	EventCheckoutPhase        = "checkout.phase"
	EventTransactionCompleted = "transaction.completed"
	EventConversationMessage  = "conversation.message"
	EventSessionCreated       = "session.created"
	EventSessionTier          = "session.tier"
	EventListingCreated       = "listing.created"
)

// Event is the envelope pushed to live clients.
type Event struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals data into an Event envelope.
func NewEvent(typ string, at time.Time, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, At: at, Data: raw}, nil
}
