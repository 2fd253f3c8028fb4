package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// EventPublisher wraps domain events in an envelope, publishes them for live
// subscribers and appends them to the replay stream. Publishing never fails
// the calling operation; errors are only logged.
type EventPublisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewEventPublisher creates an EventPublisher on bus. A nil bus discards
// events.
func NewEventPublisher(bus domain.SignalBus, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{bus: bus, logger: logger}
}

// Publish emits an event of type typ carrying data.
func (p *EventPublisher) Publish(ctx context.Context, typ string, at time.Time, data any) {
	if p == nil || p.bus == nil {
		return
	}
	ev, err := domain.NewEvent(typ, at, data)
	if err != nil {
		p.logger.WarnContext(ctx, "events: marshal event failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, domain.EventsChannel, payload); err != nil {
		p.logger.WarnContext(ctx, "events: publish failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
	}
	if err := p.bus.StreamAppend(ctx, domain.EventsChannel, payload); err != nil {
		p.logger.WarnContext(ctx, "events: stream append failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
	}
}
