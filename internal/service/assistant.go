package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/metrics"
)

// Fixed replies used whenever generation fails.
const (
	FallbackChat        = "I'm having trouble responding right now."
	FallbackDescription = "Failed to generate description. Please write one manually."
	FallbackNegotiation = "I recommend sticking to your firm price for now."
)

// DefaultChatContext describes the platform when the caller gives no context.
const DefaultChatContext = "User is on Willy Paully Links. We use AES-256 E2EE for all P2P chats. " +
	"Our Smart Escrow system uses a 4-phase lock-and-release protocol. " +
	"We charge 2.5% per sale for insurance and validation fees. All users are biometrically verified."

const chatSystemInstruction = "You are the Willy Paully Assistant. Help users with P2P Crypto trading, " +
	"encrypted escrow, platform features, and marketplace safety. If they ask about selling fees, " +
	"tell them it's 2.5%. For crypto P2P, emphasize that we use end-to-end encryption for chats and " +
	"a secure escrow system for asset releases. Explain that we comply with global KYC/AML laws."

const descriptionPrompt = `Write a compelling, professional e-commerce product description for:
    Name: %s
    Category: %s
    Key Features: %s
    Keep it under 150 words. Focus on benefits and value proposition. If it's crypto, emphasize P2P security.`

const negotiationPrompt = `You are a professional sales negotiator. Here is a chat history between a buyer and a seller for an item (possibly a P2P crypto asset) priced at $%s:
    ---
    %s
    ---
    Suggest the next best move for the seller to close the deal or handle objections. For crypto, mention escrow safety. Keep it concise.`

// AssistantService wraps the text generator for marketplace Q&A, listing copy
// and negotiation advice. Generation failures never reach the caller: each
// operation answers with its fixed fallback instead.
type AssistantService struct {
	gen    domain.Generator
	logger *slog.Logger
}

// NewAssistantService creates an AssistantService on gen.
func NewAssistantService(gen domain.Generator, logger *slog.Logger) *AssistantService {
	return &AssistantService{gen: gen, logger: logger}
}

// Chat answers a marketplace question. An empty context uses
// DefaultChatContext.
func (s *AssistantService) Chat(ctx context.Context, message, platformContext string) string {
	if platformContext == "" {
		platformContext = DefaultChatContext
	}
	prompt := fmt.Sprintf("Context: %s\nUser: %s", platformContext, message)
	return s.generate(ctx, "chat", prompt, domain.GenerateOptions{SystemInstruction: chatSystemInstruction}, FallbackChat)
}

// DraftDescription writes listing copy. Name and features are required;
// their absence is the only error returned.
func (s *AssistantService) DraftDescription(ctx context.Context, name, category, features string) (string, error) {
	name = strings.TrimSpace(name)
	features = strings.TrimSpace(features)
	if name == "" || features == "" {
		return "", fmt.Errorf("assistant_service: describe: %w: Please enter a name and some features first!", domain.ErrInvalidInput)
	}
	prompt := fmt.Sprintf(descriptionPrompt, name, category, features)
	return s.generate(ctx, "describe", prompt, domain.GenerateOptions{}, FallbackDescription), nil
}

// NegotiationAdvice suggests the seller's next move for a transcript about an
// item priced at price.
func (s *AssistantService) NegotiationAdvice(ctx context.Context, transcript string, price decimal.Decimal) string {
	prompt := fmt.Sprintf(negotiationPrompt, price.String(), transcript)
	return s.generate(ctx, "negotiate", prompt, domain.GenerateOptions{}, FallbackNegotiation)
}

// Available reports whether a real generator is configured.
func (s *AssistantService) Available() bool {
	type availability interface{ Available() bool }
	if a, ok := s.gen.(availability); ok {
		return a.Available()
	}
	return s.gen != nil
}

func (s *AssistantService) generate(ctx context.Context, op, prompt string, opts domain.GenerateOptions, fallback string) string {
	metrics.AssistantCalls.WithLabelValues(op).Inc()
	if s.gen == nil {
		metrics.AssistantFallbacks.WithLabelValues(op).Inc()
		return fallback
	}

	text, err := s.gen.Generate(ctx, prompt, opts)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		metrics.AssistantFallbacks.WithLabelValues(op).Inc()
		level := slog.LevelError
		if errors.Is(err, domain.ErrGeneratorUnavailable) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "assistant_service: generation failed, using fallback",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return fallback
	}
	return text
}

// Transcript renders messages as "sender: text" lines; image-only messages
// show as "[Image]".
func Transcript(msgs []domain.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text
		if text == "" {
			text = "[Image]"
		}
		lines = append(lines, string(m.Sender)+": "+text)
	}
	return strings.Join(lines, "\n")
}
