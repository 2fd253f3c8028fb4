package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// ConversationStore implements domain.ConversationStore. Threads keep
// insertion order; messages are append-only.
type ConversationStore struct {
	mu    sync.RWMutex
	order []string
	convs map[string]*domain.Conversation
}

// NewConversationStore creates a ConversationStore holding seed.
func NewConversationStore(seed []domain.Conversation) *ConversationStore {
	s := &ConversationStore{convs: make(map[string]*domain.Conversation)}
	for _, c := range seed {
		c := copyConversation(c)
		s.order = append(s.order, c.ID)
		s.convs[c.ID] = &c
	}
	return s
}

// Create adds a new thread.
func (s *ConversationStore) Create(_ context.Context, conv domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[conv.ID]; ok {
		return fmt.Errorf("memory: create conversation %s: %w", conv.ID, domain.ErrAlreadyExists)
	}
	c := copyConversation(conv)
	s.order = append(s.order, c.ID)
	s.convs[c.ID] = &c
	return nil
}

// GetByID returns a copy of the thread.
func (s *ConversationStore) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, fmt.Errorf("memory: get conversation %s: %w", id, domain.ErrNotFound)
	}
	return copyConversation(*c), nil
}

// GetByListing returns the first thread linked to listingID.
func (s *ConversationStore) GetByListing(_ context.Context, listingID string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if c := s.convs[id]; c.ListingID == listingID {
			return copyConversation(*c), nil
		}
	}
	return domain.Conversation{}, fmt.Errorf("memory: conversation for listing %s: %w", listingID, domain.ErrNotFound)
}

// List returns every thread in creation order.
func (s *ConversationStore) List(_ context.Context) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyConversation(*s.convs[id]))
	}
	return out, nil
}

// AppendMessage appends msg to the thread and sets its last-message summary.
func (s *ConversationStore) AppendMessage(_ context.Context, id string, msg domain.Message, lastMessage string) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, fmt.Errorf("memory: append message to %s: %w", id, domain.ErrNotFound)
	}
	c.Messages = append(c.Messages, msg)
	c.LastMessage = lastMessage
	return copyConversation(*c), nil
}

// Update applies fn to the thread's metadata. Changes fn makes to Messages
// are discarded.
func (s *ConversationStore) Update(_ context.Context, id string, fn func(*domain.Conversation)) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, fmt.Errorf("memory: update conversation %s: %w", id, domain.ErrNotFound)
	}
	next := copyConversation(*c)
	fn(&next)
	next.ID = c.ID
	next.Messages = c.Messages
	*c = next
	return copyConversation(*c), nil
}

func copyConversation(c domain.Conversation) domain.Conversation {
	msgs := make([]domain.Message, len(c.Messages))
	copy(msgs, c.Messages)
	c.Messages = msgs
	return c
}

var _ domain.ConversationStore = (*ConversationStore)(nil)
