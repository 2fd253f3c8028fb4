package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// LedgerStore implements domain.LedgerStore as an append-only slice.
type LedgerStore struct {
	mu  sync.RWMutex
	txs []domain.Transaction
	ids map[string]struct{}
}

// NewLedgerStore creates an empty LedgerStore.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{ids: make(map[string]struct{})}
}

// Append records tx. A duplicate ID is rejected so a completion can never be
// booked twice.
func (s *LedgerStore) Append(_ context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("memory: append transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[tx.ID]; ok {
		return fmt.Errorf("memory: append transaction %s: %w", tx.ID, domain.ErrAlreadyExists)
	}
	s.ids[tx.ID] = struct{}{}
	s.txs = append(s.txs, tx)
	return nil
}

// Exists reports whether a transaction with id was appended.
func (s *LedgerStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok, nil
}

// List returns the ledger newest first.
func (s *LedgerStore) List(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.txs))
	for i := len(s.txs) - 1; i >= 0; i-- {
		out = append(out, s.txs[i])
	}
	return out, nil
}

var _ domain.LedgerStore = (*LedgerStore)(nil)
