package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

func TestAssistantFallbacks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	gens := []struct {
		name string
		gen  domain.Generator
	}{
		{name: "error", gen: &fakeGenerator{err: errors.New("quota exceeded")}},
		{name: "unavailable", gen: &fakeGenerator{err: domain.ErrGeneratorUnavailable}},
		{name: "empty reply", gen: &fakeGenerator{reply: "  \n"}},
		{name: "nil generator", gen: nil},
	}
	for _, g := range gens {
		t.Run(g.name, func(t *testing.T) {
			svc := NewAssistantService(g.gen, logger)

			if got := svc.Chat(ctx, "What are the fees?", ""); got != FallbackChat {
				t.Fatalf("Chat() = %q, want %q", got, FallbackChat)
			}
			got, err := svc.DraftDescription(ctx, "Lamp", "Home Decor", "brass, dimmable")
			if err != nil || got != FallbackDescription {
				t.Fatalf("DraftDescription() = %q, %v, want %q", got, err, FallbackDescription)
			}
			if got := svc.NegotiationAdvice(ctx, "buyer: hi", decimal.NewFromInt(10)); got != FallbackNegotiation {
				t.Fatalf("NegotiationAdvice() = %q, want %q", got, FallbackNegotiation)
			}
		})
	}
}

func TestAssistantPrompts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("chat uses default context and system instruction", func(t *testing.T) {
		gen := &fakeGenerator{reply: "The fee is 2.5%."}
		svc := NewAssistantService(gen, logger)

		if got := svc.Chat(ctx, "What are the fees?", ""); got != "The fee is 2.5%." {
			t.Fatalf("Chat() = %q, want generator reply", got)
		}
		if !strings.HasPrefix(gen.prompt, "Context: "+DefaultChatContext+"\nUser: What are the fees?") {
			t.Fatalf("prompt = %q", gen.prompt)
		}
		if !strings.Contains(gen.opts.SystemInstruction, "Willy Paully Assistant") {
			t.Fatalf("system instruction = %q", gen.opts.SystemInstruction)
		}
	})

	t.Run("description requires name and features", func(t *testing.T) {
		gen := &fakeGenerator{reply: "A lovely lamp."}
		svc := NewAssistantService(gen, logger)

		if _, err := svc.DraftDescription(ctx, "", "Home Decor", "brass"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("DraftDescription(no name) error = %v, want ErrInvalidInput", err)
		}
		if gen.calls != 0 {
			t.Fatalf("generator calls = %d, want 0", gen.calls)
		}
		got, err := svc.DraftDescription(ctx, "Lamp", "Home Decor", "brass")
		if err != nil || got != "A lovely lamp." {
			t.Fatalf("DraftDescription() = %q, %v", got, err)
		}
		if !strings.Contains(gen.prompt, "Name: Lamp") || !strings.Contains(gen.prompt, "Key Features: brass") {
			t.Fatalf("prompt = %q", gen.prompt)
		}
	})
}

func TestTranscript(t *testing.T) {
	got := Transcript([]domain.Message{
		{Sender: domain.SenderCounterpart, Text: "Hi"},
		{Sender: domain.SenderBuyer, Image: "data:image/png;base64,AAAA"},
	})
	want := "counterpart: Hi\nbuyer: [Image]"
	if got != want {
		t.Fatalf("Transcript() = %q, want %q", got, want)
	}
}
