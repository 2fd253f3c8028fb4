package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/cache/memory"
	"github.com/alanyoungcy/marketlinks/internal/domain"
)

type recordingSender struct {
	mu    sync.Mutex
	notes []Notification
	err   error
}

func (s *recordingSender) Send(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return s.err
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFilter(t *testing.T) {
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, []string{EventTransactionCompleted}, discardLogger())
	ctx := context.Background()

	if err := n.Notify(ctx, Notification{Event: EventTierUpgraded, Title: "t"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if err := n.Notify(ctx, Notification{Event: EventTransactionCompleted, Title: "t"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("sent %d notifications, want 1", rec.count())
	}
}

func TestNotifyCollectsSenderErrors(t *testing.T) {
	bad := &recordingSender{err: errors.New("down")}
	good := &recordingSender{}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), Notification{Event: "any", Title: "t"})
	if err == nil || !strings.Contains(err.Error(), "1 sender(s) failed") {
		t.Fatalf("Notify() error = %v, want one failure", err)
	}
	if good.count() != 1 {
		t.Fatal("healthy sender skipped after failure")
	}
}

func TestRelayForwardsTransactions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewSignalBus(8)
	rec := &recordingSender{}
	n := NewNotifier([]Sender{rec}, nil, discardLogger())

	done := make(chan error, 1)
	go func() { done <- n.Relay(ctx, bus) }()

	tx := domain.Transaction{
		ID:           "WP-ABCDEFGHI",
		ListingTitle: "Vintage Film Camera",
		Amount:       decimal.NewFromInt(120),
		Fee:          decimal.NewFromInt(3),
		Method:       domain.PaymentCard,
	}
	ev, _ := domain.NewEvent(domain.EventTransactionCompleted, time.Now(), tx)
	payload, _ := json.Marshal(ev)
	ignored, _ := domain.NewEvent(domain.EventConversationMessage, time.Now(), map[string]string{})
	ignoredPayload, _ := json.Marshal(ignored)

	deadline := time.After(2 * time.Second)
	for rec.count() == 0 {
		// The relay subscribes asynchronously; publish until it is listening.
		_ = bus.Publish(ctx, domain.EventsChannel, ignoredPayload)
		_ = bus.Publish(ctx, domain.EventsChannel, payload)
		select {
		case <-deadline:
			t.Fatal("relay did not forward the transaction")
		case <-time.After(10 * time.Millisecond):
		}
	}

	rec.mu.Lock()
	note := rec.notes[0]
	rec.mu.Unlock()
	if note.Title != "Purchase completed" || note.Body != "Vintage Film Camera sold for $120.00" {
		t.Fatalf("notification = %q / %q", note.Title, note.Body)
	}
	if len(note.Fields) != 3 || note.Fields[0].Value != "WP-ABCDEFGHI" || note.Fields[2].Value != "$3.00" {
		t.Fatalf("fields = %+v, want reference, method and fee", note.Fields)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Relay() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Relay did not stop")
	}
}

func TestDescribe(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		typ       string
		data      any
		wantOK    bool
		wantEvent string
		wantBody  string
		wantQuiet bool
	}{
		{
			name: "tier upgrade",
			typ:  domain.EventSessionTier,
			data: domain.Actor{
				ID:              "a1",
				Name:            "Dana",
				Tier:            domain.TierDocument,
				SpendingCeiling: domain.TierDocument.Ceiling(),
			},
			wantOK:    true,
			wantEvent: EventTierUpgraded,
			wantBody:  "Dana reached tier 2 (limit $5000)",
		},
		{
			name:      "session created",
			typ:       domain.EventSessionCreated,
			data:      domain.Actor{Name: "Dana", Role: domain.RoleOwner, Country: "US"},
			wantOK:    true,
			wantEvent: EventSessionCreated,
			wantBody:  "Dana joined as owner from US",
			wantQuiet: true,
		},
		{
			name: "checkout phase is not notified",
			typ:  domain.EventCheckoutPhase,
			data: map[string]string{"phase": "locking"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := domain.NewEvent(tt.typ, at, tt.data)
			if err != nil {
				t.Fatalf("NewEvent() error = %v", err)
			}
			note, ok := describe(ev)
			if ok != tt.wantOK {
				t.Fatalf("describe() ok = %v, want %v", ok, tt.wantOK)
			}
			if note.Event != tt.wantEvent || note.Body != tt.wantBody || note.Quiet != tt.wantQuiet {
				t.Fatalf("describe() = %+v, want %q / %q quiet=%v", note, tt.wantEvent, tt.wantBody, tt.wantQuiet)
			}
		})
	}
}

func TestDiscordSender(t *testing.T) {
	var got discordWebhook
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	note := Notification{
		Event:  EventSessionCreated,
		Title:  "New session",
		Body:   "Dana joined as owner from US",
		Fields: []Field{{Name: "Role", Value: "owner"}},
		At:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Quiet:  true,
	}
	if err := NewDiscordSender(srv.URL, "Willy Paully Links").Send(context.Background(), note); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.Username != "Willy Paully Links" || got.Flags != discordSuppressNotify || len(got.Embeds) != 1 {
		t.Fatalf("webhook = %+v, want one quiet embed from the storefront", got)
	}
	embed := got.Embeds[0]
	if embed.Title != "New session" || embed.Description != note.Body || embed.Color != discordColors[EventSessionCreated] {
		t.Fatalf("embed = %+v", embed)
	}
	if embed.Timestamp != "2026-03-01T12:00:00Z" || len(embed.Fields) != 1 || !embed.Fields[0].Inline {
		t.Fatalf("embed timestamp = %q fields = %+v", embed.Timestamp, embed.Fields)
	}
}

func TestTelegramSender(t *testing.T) {
	var (
		path string
		msg  telegramMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&msg)
		if msg.ChatID != "42" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	note := Notification{
		Event:  EventTransactionCompleted,
		Title:  "Purchase completed",
		Body:   "Tom & Jerry <mint> sold for $12.00",
		Fields: []Field{{Name: "Reference", Value: "WP-ABCDEFGHI"}},
	}

	s := NewTelegramSender("tok", "42", "Willy Paully Links")
	s.baseURL = srv.URL
	if err := s.Send(context.Background(), note); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Fatalf("path = %q", path)
	}
	want := "<b>Willy Paully Links</b> | Purchase completed\n" +
		"Tom &amp; Jerry &lt;mint&gt; sold for $12.00\n" +
		"<b>Reference:</b> <code>WP-ABCDEFGHI</code>"
	if msg.Text != want || msg.ParseMode != "HTML" || msg.DisableNotification {
		t.Fatalf("message = %+v, want escaped HTML text %q", msg, want)
	}

	wrong := NewTelegramSender("tok", "7", "Willy Paully Links")
	wrong.baseURL = srv.URL
	err := wrong.Send(context.Background(), note)
	if err == nil || !strings.Contains(err.Error(), "status 400: Bad Request: chat not found") {
		t.Fatalf("Send() error = %v, want Bot API description", err)
	}
}
