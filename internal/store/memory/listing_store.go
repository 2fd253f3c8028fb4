// Package memory implements the domain stores on process memory. Every store
// is safe for concurrent use and loses its contents on restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// ListingStore implements domain.ListingStore. Listings are kept most recent
// first.
type ListingStore struct {
	mu       sync.RWMutex
	listings []domain.Listing
}

// NewListingStore creates a ListingStore holding seed in the given order.
func NewListingStore(seed []domain.Listing) *ListingStore {
	listings := make([]domain.Listing, len(seed))
	copy(listings, seed)
	return &ListingStore{listings: listings}
}

// Prepend inserts listing at the head of the catalog. IDs must be unique.
func (s *ListingStore) Prepend(_ context.Context, listing domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listings {
		if l.ID == listing.ID {
			return fmt.Errorf("memory: prepend listing %s: %w", listing.ID, domain.ErrAlreadyExists)
		}
	}
	s.listings = append([]domain.Listing{listing}, s.listings...)
	return nil
}

// GetByID returns the listing with the given id.
func (s *ListingStore) GetByID(_ context.Context, id string) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Listing{}, fmt.Errorf("memory: get listing %s: %w", id, domain.ErrNotFound)
}

// List returns a copy of the catalog in display order.
func (s *ListingStore) List(_ context.Context) ([]domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Listing, len(s.listings))
	copy(out, s.listings)
	return out, nil
}

var _ domain.ListingStore = (*ListingStore)(nil)
