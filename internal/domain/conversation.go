package domain

import "time"

// Sender identifies the author of a message.
type Sender string

const (
	SenderBuyer       Sender = "buyer"
	SenderCounterpart Sender = "counterpart"
	SenderAssistant   Sender = "assistant"
)

// Message is a single chat entry. Image holds a data URL when present.
type Message struct {
	ID             string    `json:"id"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text,omitempty"`
	Image          string    `json:"image,omitempty"`
	SentAt         time.Time `json:"sent_at"`
	Encrypted      bool      `json:"encrypted"`
	EncryptionHash string    `json:"encryption_hash,omitempty"`
}

// Summary is the text shown as a thread's last message.
func (m Message) Summary() string {
	if m.Image != "" {
		return "Sent an image"
	}
	return m.Text
}

// Conversation is a chat thread with one counterpart.
type Conversation struct {
	ID                string    `json:"id"`
	CounterpartName   string    `json:"counterpart_name"`
	CounterpartAvatar string    `json:"counterpart_avatar"`
	LastMessage       string    `json:"last_message"`
	ListingID         string    `json:"listing_id,omitempty"`
	P2P               bool      `json:"p2p"`
	HandshakeUntil    time.Time `json:"handshake_until,omitempty"`
	Messages          []Message `json:"messages"`
}

// Handshaking reports whether the decorative secure-handshake indicator is
// showing at now.
func (c Conversation) Handshaking(now time.Time) bool {
	return now.Before(c.HandshakeUntil)
}
