package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketlinks/internal/cache/memory"
	"github.com/alanyoungcy/marketlinks/internal/domain"
)

func event(t *testing.T, typ string) []byte {
	t.Helper()
	ev, err := domain.NewEvent(typ, time.Now(), map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	b, _ := json.Marshal(ev)
	return b
}

func readType(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	return eventType(data)
}

func TestHubReplaysAndFilters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewSignalBus(16)
	if err := bus.StreamAppend(ctx, domain.EventsChannel, event(t, domain.EventCheckoutPhase)); err != nil {
		t.Fatalf("StreamAppend() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(bus, logger, Config{Mode: "standalone", ReplayLen: 10})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?events=checkout.*"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if got := readType(t, conn); got != "hello" {
		t.Fatalf("first frame = %q, want hello", got)
	}
	if got := readType(t, conn); got != domain.EventCheckoutPhase {
		t.Fatalf("replayed frame = %q, want %s", got, domain.EventCheckoutPhase)
	}

	bus.Publish(ctx, domain.EventsChannel, event(t, domain.EventListingCreated))
	bus.Publish(ctx, domain.EventsChannel, event(t, domain.EventTransactionCompleted))
	bus.Publish(ctx, domain.EventsChannel, event(t, domain.EventCheckoutPhase))

	if got := readType(t, conn); got != domain.EventCheckoutPhase {
		t.Fatalf("live frame = %q, want %s", got, domain.EventCheckoutPhase)
	}
}

func TestHubGreetsBeforeLiveEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewSignalBus(16)
	if err := bus.StreamAppend(ctx, domain.EventsChannel, event(t, domain.EventListingCreated)); err != nil {
		t.Fatalf("StreamAppend() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(bus, logger, Config{Mode: "standalone", ReplayLen: 10})
	go hub.Run(ctx)

	c := &client{hub: hub, send: make(chan []byte, 8), subs: map[string]bool{"*": true}}
	hub.register <- c
	bus.Publish(ctx, domain.EventsChannel, event(t, domain.EventSessionTier))

	want := []string{"hello", domain.EventListingCreated, domain.EventSessionTier}
	for i, typ := range want {
		select {
		case data := <-c.send:
			if got := eventType(data); got != typ {
				t.Fatalf("frame %d = %q, want %q", i, got, typ)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d not delivered", i)
		}
	}
}

func TestHubRejectsClientsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(memory.NewSignalBus(4), logger, Config{ReplayLen: 10})
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("ReadMessage() succeeded on a stopped hub, want closed connection")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		subs map[string]bool
		typ  string
		want bool
	}{
		{map[string]bool{"*": true}, domain.EventSessionTier, true},
		{map[string]bool{"session.*": true}, domain.EventSessionTier, true},
		{map[string]bool{"session.*": true}, domain.EventCheckoutPhase, false},
		{map[string]bool{domain.EventListingCreated: true}, domain.EventListingCreated, true},
		{map[string]bool{}, domain.EventListingCreated, false},
	}
	for _, tt := range tests {
		if got := matches(tt.subs, tt.typ); got != tt.want {
			t.Fatalf("matches(%v, %q) = %v, want %v", tt.subs, tt.typ, got, tt.want)
		}
	}
}
