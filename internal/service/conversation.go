package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/clock"
	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/labels"
	"github.com/alanyoungcy/marketlinks/internal/metrics"
)

// ConversationService manages chat threads. Messages on threads about P2P
// listings carry the cosmetic encryption badge.
type ConversationService struct {
	conversations domain.ConversationStore
	listings      domain.ListingStore
	assistant     *AssistantService
	labels        *labels.Source
	clock         clock.Clock
	events        *EventPublisher
	handshake     time.Duration
	logger        *slog.Logger
}

// NewConversationService creates a ConversationService. handshake is how long
// the secure-handshake indicator shows after opening a P2P thread.
func NewConversationService(
	conversations domain.ConversationStore,
	listings domain.ListingStore,
	assistant *AssistantService,
	src *labels.Source,
	clk clock.Clock,
	events *EventPublisher,
	handshake time.Duration,
	logger *slog.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		listings:      listings,
		assistant:     assistant,
		labels:        src,
		clock:         clk,
		events:        events,
		handshake:     handshake,
		logger:        logger,
	}
}

// List returns every thread.
func (s *ConversationService) List(ctx context.Context) ([]domain.Conversation, error) {
	convs, err := s.conversations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation_service: list: %w", err)
	}
	return convs, nil
}

// Open returns a thread and, for P2P threads, starts the handshake
// indicator.
func (s *ConversationService) Open(ctx context.Context, id string) (domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("conversation_service: open %s: %w", id, err)
	}
	if !s.isP2P(ctx, conv) {
		return conv, nil
	}
	until := s.clock.Now().Add(s.handshake)
	conv, err = s.conversations.Update(ctx, id, func(c *domain.Conversation) {
		c.P2P = true
		c.HandshakeUntil = until
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("conversation_service: open %s: %w", id, err)
	}
	return conv, nil
}

// Start returns the thread about listingID, creating one with the listing's
// seller when none exists.
func (s *ConversationService) Start(ctx context.Context, listingID string) (domain.Conversation, error) {
	conv, err := s.conversations.GetByListing(ctx, listingID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Conversation{}, fmt.Errorf("conversation_service: start %s: %w", listingID, err)
	}

	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("conversation_service: start %s: %w", listingID, err)
	}
	avatar := l.SellerAvatar
	if avatar == "" {
		avatar = "https://i.pravatar.cc/150?u=" + l.Seller
	}
	conv = domain.Conversation{
		ID:                s.labels.ID(),
		CounterpartName:   l.Seller,
		CounterpartAvatar: avatar,
		ListingID:         l.ID,
		P2P:               l.IsP2P(),
		Messages:          []domain.Message{},
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("conversation_service: create: %w", err)
	}
	s.logger.InfoContext(ctx, "conversation_service: thread started",
		slog.String("conversation_id", conv.ID),
		slog.String("listing_id", l.ID),
		slog.Bool("p2p", conv.P2P),
	)
	return conv, nil
}

// Send appends a buyer message with text, an image data URL, or both.
func (s *ConversationService) Send(ctx context.Context, id, text, image string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" && image == "" {
		return domain.Message{}, fmt.Errorf("conversation_service: send: %w", domain.ErrEmptyMessage)
	}
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return domain.Message{}, fmt.Errorf("conversation_service: send %s: %w", id, err)
	}

	now := s.clock.Now()
	msg := domain.Message{
		ID:     s.labels.MessageID(now),
		Sender: domain.SenderBuyer,
		Text:   text,
		Image:  image,
		SentAt: now,
	}
	if s.isP2P(ctx, conv) {
		msg.Encrypted = true
		msg.EncryptionHash = s.labels.EncryptionTag()
	}

	if _, err := s.conversations.AppendMessage(ctx, id, msg, msg.Summary()); err != nil {
		return domain.Message{}, fmt.Errorf("conversation_service: append %s: %w", id, err)
	}

	metrics.MessagesSent.WithLabelValues(strconv.FormatBool(msg.Encrypted)).Inc()
	s.events.Publish(ctx, domain.EventConversationMessage, now, map[string]any{
		"conversation_id": id,
		"message":         msg,
	})
	return msg, nil
}

// Advice asks the assistant for the seller's next move in a thread about a
// listing.
func (s *ConversationService) Advice(ctx context.Context, id string) (string, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("conversation_service: advice %s: %w", id, err)
	}
	if conv.ListingID == "" {
		return "", fmt.Errorf("conversation_service: advice %s: %w: thread has no listing", id, domain.ErrInvalidInput)
	}
	l, err := s.listings.GetByID(ctx, conv.ListingID)
	if err != nil {
		return "", fmt.Errorf("conversation_service: advice %s: %w", id, err)
	}
	return s.assistant.NegotiationAdvice(ctx, Transcript(conv.Messages), l.Price), nil
}

// isP2P reports whether the thread concerns a P2P listing. A listing that
// has since disappeared falls back to the flag stored on the thread.
func (s *ConversationService) isP2P(ctx context.Context, conv domain.Conversation) bool {
	if conv.P2P || conv.ListingID == "" {
		return conv.P2P
	}
	l, err := s.listings.GetByID(ctx, conv.ListingID)
	if err != nil {
		return false
	}
	return l.IsP2P()
}
