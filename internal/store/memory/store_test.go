package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

func TestListingStorePrependOrder(t *testing.T) {
	ctx := context.Background()
	s := NewListingStore([]domain.Listing{{ID: "a"}, {ID: "b"}})

	if err := s.Prepend(ctx, domain.Listing{ID: "c"}); err != nil {
		t.Fatalf("Prepend() error = %v", err)
	}
	if err := s.Prepend(ctx, domain.Listing{ID: "a"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("Prepend(duplicate) error = %v, want ErrAlreadyExists", err)
	}

	got, _ := s.List(ctx)
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("List()[%d] = %s, want %s", i, got[i].ID, id)
		}
	}

	if _, err := s.GetByID(ctx, "zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func completedTx(id string) domain.Transaction {
	return domain.Transaction{ID: id, Status: domain.TransactionCompleted, EscrowStatus: domain.EscrowNone}
}

func TestLedgerStoreRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewLedgerStore()

	if err := s.Append(ctx, completedTx("WP-1")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, completedTx("WP-2")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, completedTx("WP-1")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("Append(duplicate) error = %v, want ErrAlreadyExists", err)
	}

	txs, _ := s.List(ctx)
	if len(txs) != 2 || txs[0].ID != "WP-2" {
		t.Fatalf("List() = %+v, want newest first with 2 entries", txs)
	}
	if ok, _ := s.Exists(ctx, "WP-1"); !ok {
		t.Fatal("Exists(WP-1) = false, want true")
	}
}

func TestLedgerStoreValidates(t *testing.T) {
	ctx := context.Background()
	s := NewLedgerStore()

	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{"empty id", completedTx("")},
		{"unknown status", domain.Transaction{ID: "WP-3", Status: "refunded", EscrowStatus: domain.EscrowNone}},
		{"unknown escrow", domain.Transaction{ID: "WP-4", Status: domain.TransactionPending, EscrowStatus: "held"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Append(ctx, tt.tx); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("Append() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	locked := domain.Transaction{ID: "WP-5", Status: domain.TransactionPending, EscrowStatus: domain.EscrowLocked}
	if err := s.Append(ctx, locked); err != nil {
		t.Fatalf("Append(pending locked) error = %v", err)
	}
	if txs, _ := s.List(ctx); len(txs) != 1 {
		t.Fatalf("List() len = %d, want 1", len(txs))
	}
}

func TestSessionStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	if _, err := s.Get(ctx); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("Get() error = %v, want ErrNoSession", err)
	}
	actor := domain.Actor{ID: "u1", Tier: domain.TierBasic, Balances: map[string]decimal.Decimal{"BTC": decimal.Zero}}
	if err := s.Create(ctx, actor); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create(ctx, actor); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("Create(again) error = %v, want ErrAlreadyExists", err)
	}

	boom := errors.New("boom")
	if _, err := s.Update(ctx, func(a *domain.Actor) error {
		a.Tier = domain.TierLive
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}
	got, _ := s.Get(ctx)
	if got.Tier != domain.TierBasic {
		t.Fatalf("failed Update changed tier to %d", got.Tier)
	}

	got.Balances["BTC"] = decimal.NewFromInt(9)
	again, _ := s.Get(ctx)
	if !again.Balances["BTC"].IsZero() {
		t.Fatal("Get() leaked the stored balances map")
	}
}

func TestConversationStoreAppend(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore([]domain.Conversation{{ID: "chat-1", ListingID: "1"}})

	conv, err := s.AppendMessage(ctx, "chat-1", domain.Message{ID: "m1", Text: "hi"}, "hi")
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if len(conv.Messages) != 1 || conv.LastMessage != "hi" {
		t.Fatalf("AppendMessage() = %+v", conv)
	}
	if _, err := s.AppendMessage(ctx, "nope", domain.Message{}, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("AppendMessage(missing) error = %v, want ErrNotFound", err)
	}

	updated, err := s.Update(ctx, "chat-1", func(c *domain.Conversation) {
		c.P2P = true
		c.Messages = nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.P2P || len(updated.Messages) != 1 {
		t.Fatalf("Update() = %+v, want P2P with messages kept", updated)
	}

	byListing, err := s.GetByListing(ctx, "1")
	if err != nil || byListing.ID != "chat-1" {
		t.Fatalf("GetByListing() = %+v, %v", byListing, err)
	}
}
