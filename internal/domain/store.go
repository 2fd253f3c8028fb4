package domain

import "context"

// ListingStore holds the catalog, most recent listing first.
type ListingStore interface {
	Prepend(ctx context.Context, listing Listing) error
	GetByID(ctx context.Context, id string) (Listing, error)
	List(ctx context.Context) ([]Listing, error)
}

// LedgerStore is the append-only transaction ledger.
type LedgerStore interface {
	Append(ctx context.Context, tx Transaction) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Transaction, error)
}

// SessionStore holds the single actor of the running session.
type SessionStore interface {
	Get(ctx context.Context) (Actor, error)
	Create(ctx context.Context, actor Actor) error
	Update(ctx context.Context, fn func(*Actor) error) (Actor, error)
}

// ConversationStore holds chat threads with append-only message lists.
type ConversationStore interface {
	Create(ctx context.Context, conv Conversation) error
	GetByID(ctx context.Context, id string) (Conversation, error)
	GetByListing(ctx context.Context, listingID string) (Conversation, error)
	List(ctx context.Context) ([]Conversation, error)
	AppendMessage(ctx context.Context, id string, msg Message, lastMessage string) (Conversation, error)
	Update(ctx context.Context, id string, fn func(*Conversation)) (Conversation, error)
}
