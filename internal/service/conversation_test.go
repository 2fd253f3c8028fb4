package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

func (h *harness) conversation(gen domain.Generator) *ConversationService {
	return NewConversationService(h.conversations, h.listings, NewAssistantService(gen, h.logger),
		h.labels, h.clock, h.events, 2*time.Second, h.logger)
}

func TestConversationEncryptionFollowsListing(t *testing.T) {
	h := newHarness(t)
	svc := h.conversation(&fakeGenerator{})
	ctx := context.Background()

	plain, err := svc.Send(ctx, "chat-1", "Would you take 100?", "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if plain.Encrypted || plain.EncryptionHash != "" {
		t.Fatalf("message on camera thread = %+v, want unencrypted", plain)
	}

	conv, err := svc.Start(ctx, "crypto-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !conv.P2P || conv.CounterpartName != "CryptoWhale_99" {
		t.Fatalf("Start() = %+v, want P2P thread with CryptoWhale_99", conv)
	}
	again, _ := svc.Start(ctx, "crypto-1")
	if again.ID != conv.ID {
		t.Fatalf("Start(again) id = %s, want %s", again.ID, conv.ID)
	}

	sealed, err := svc.Send(ctx, conv.ID, "Is escrow ready?", "")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !sealed.Encrypted || !strings.HasPrefix(sealed.EncryptionHash, "sha256:") {
		t.Fatalf("message on crypto thread = %+v, want encrypted with sha256 tag", sealed)
	}
}

func TestConversationSend(t *testing.T) {
	h := newHarness(t)
	svc := h.conversation(&fakeGenerator{})
	ctx := context.Background()

	if _, err := svc.Send(ctx, "chat-1", "  ", ""); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("Send(blank) error = %v, want ErrEmptyMessage", err)
	}
	if _, err := svc.Send(ctx, "nope", "hi", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Send(missing thread) error = %v, want ErrNotFound", err)
	}

	if _, err := svc.Send(ctx, "chat-1", "", "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("Send(image) error = %v", err)
	}
	conv, _ := h.conversations.GetByID(ctx, "chat-1")
	if conv.LastMessage != "Sent an image" {
		t.Fatalf("last message = %q, want \"Sent an image\"", conv.LastMessage)
	}
	if n := len(conv.Messages); n != 3 || conv.Messages[n-1].Image == "" {
		t.Fatalf("messages = %+v, want image appended last", conv.Messages)
	}
	if got := h.eventTypes(t); len(got) != 1 || got[0] != domain.EventConversationMessage {
		t.Fatalf("events = %v, want one message event", got)
	}
}

func TestConversationHandshake(t *testing.T) {
	h := newHarness(t)
	svc := h.conversation(&fakeGenerator{})
	ctx := context.Background()

	plain, _ := svc.Open(ctx, "chat-1")
	if plain.Handshaking(h.clock.Now()) {
		t.Fatal("camera thread handshaking = true, want false")
	}

	conv, _ := svc.Start(ctx, "crypto-1")
	conv, err := svc.Open(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !conv.Handshaking(h.clock.Now()) {
		t.Fatal("crypto thread handshaking = false, want true")
	}
	if conv.Handshaking(h.clock.Advance(2 * time.Second)) {
		t.Fatal("handshaking after 2s = true, want false")
	}
}

func TestConversationAdvice(t *testing.T) {
	h := newHarness(t)
	gen := &fakeGenerator{reply: "Offer free shipping."}
	svc := h.conversation(gen)
	ctx := context.Background()

	svc.Send(ctx, "chat-1", "", "data:image/png;base64,AAAA")
	got, err := svc.Advice(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Advice() error = %v", err)
	}
	if got != "Offer free shipping." {
		t.Fatalf("Advice() = %q, want generator reply", got)
	}
	for _, want := range []string{"priced at $120", "counterpart: Hi! Yes, it is.", "buyer: [Image]"} {
		if !strings.Contains(gen.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.prompt)
		}
	}
}
