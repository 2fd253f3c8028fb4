// Package notify relays marketplace events to operator chat channels
// (Telegram, Discord). Events are filtered by name so operators only receive
// the alerts they asked for.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// Notification event names accepted in notify.events.
const (
	EventTransactionCompleted = "transaction_completed"
	EventTierUpgraded         = "tier_upgraded"
	EventSessionCreated       = "session_created"
)

// Notification is one operator alert rendered from a marketplace event.
type Notification struct {
	Event  string
	Title  string
	Body   string
	Fields []Field
	At     time.Time
	// Quiet alerts are delivered without a sound where the channel allows it.
	Quiet bool
}

// Field is a labelled value listed under the body, such as the amount paid.
type Field struct {
	Name  string
	Value string
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers n to the channel.
	Send(ctx context.Context, n Notification) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders, filtered by event
// name. An empty filter allows every event.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to senders.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify sends note if its event passes the filter.
func (n *Notifier) Notify(ctx context.Context, note Notification) error {
	if len(n.events) > 0 && !n.events[note.Event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", note.Event),
		)
		return nil
	}
	return n.dispatch(ctx, note)
}

// Relay subscribes to the domain event channel and forwards the events that
// map to a notification until ctx is cancelled.
func (n *Notifier) Relay(ctx context.Context, bus domain.SignalBus) error {
	ch, err := bus.Subscribe(ctx, domain.EventsChannel)
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			var ev domain.Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				n.logger.WarnContext(ctx, "undecodable event", slog.String("error", err.Error()))
				continue
			}
			note, ok := describe(ev)
			if !ok {
				continue
			}
			// Sender failures are logged in dispatch and never stop the relay.
			_ = n.Notify(ctx, note)
		}
	}
}

// describe renders ev as a notification. ok is false for events that are not
// notified.
func describe(ev domain.Event) (Notification, bool) {
	switch ev.Type {
	case domain.EventTransactionCompleted:
		var tx domain.Transaction
		if json.Unmarshal(ev.Data, &tx) != nil {
			return Notification{}, false
		}
		method := string(tx.Method)
		if tx.CryptoSymbol != "" {
			method += " (" + tx.CryptoSymbol + ")"
		}
		note := Notification{
			Event: EventTransactionCompleted,
			Title: "Purchase completed",
			Body:  fmt.Sprintf("%s sold for $%s", tx.ListingTitle, tx.Amount.StringFixed(2)),
			Fields: []Field{
				{Name: "Reference", Value: tx.ID},
				{Name: "Method", Value: method},
				{Name: "Fee", Value: "$" + tx.Fee.StringFixed(2)},
			},
			At: ev.At,
		}
		if tx.TxHash != "" {
			note.Fields = append(note.Fields, Field{Name: "Escrow " + string(tx.EscrowStatus), Value: tx.TxHash})
		}
		return note, true
	case domain.EventSessionTier:
		var a domain.Actor
		if json.Unmarshal(ev.Data, &a) != nil {
			return Notification{}, false
		}
		return Notification{
			Event: EventTierUpgraded,
			Title: "Verification upgraded",
			Body:  fmt.Sprintf("%s reached tier %d (limit $%s)", a.Name, a.Tier, a.SpendingCeiling.StringFixed(0)),
			At:    ev.At,
		}, true
	case domain.EventSessionCreated:
		var a domain.Actor
		if json.Unmarshal(ev.Data, &a) != nil {
			return Notification{}, false
		}
		return Notification{
			Event: EventSessionCreated,
			Title: "New session",
			Body:  fmt.Sprintf("%s joined as %s from %s", a.Name, a.Role, a.Country),
			At:    ev.At,
			Quiet: true,
		}, true
	default:
		return Notification{}, false
	}
}

// dispatch sends to every sender. A single sender failure does not prevent
// delivery to the rest; failures are returned combined.
func (n *Notifier) dispatch(ctx context.Context, note Notification) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, note); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", note.Event),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
