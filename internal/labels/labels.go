// Package labels generates the identifiers and decorative hashes shown by the
// marketplace. Wallet addresses, transaction hashes and encryption tags are
// random bytes formatted to look familiar; no keys exist and nothing here is
// cryptographically meaningful.
package labels

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Source draws labels from an entropy reader. It is safe for concurrent use.
type Source struct {
	mu      sync.Mutex
	r       io.Reader
	entropy *ulid.MonotonicEntropy
}

// NewSource returns a Source reading r. A nil r uses crypto/rand.
func NewSource(r io.Reader) *Source {
	if r == nil {
		r = rand.Reader
	}
	return &Source{r: r, entropy: ulid.Monotonic(r, 0)}
}

func (s *Source) read(n int) []byte {
	b := make([]byte, n)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.ReadFull(s.r, b); err != nil {
		panic(fmt.Sprintf("labels: entropy source failed: %v", err))
	}
	return b
}

// ID returns a random UUID string for listings, checkouts and threads.
func (s *Source) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uuid.Must(uuid.NewRandomFromReader(s.r)).String()
}

// MessageID returns a ULID so message IDs sort by send time.
func (s *Source) MessageID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

// WalletAddress returns a checksummed 20-byte address with no key behind it.
func (s *Source) WalletAddress() string {
	return common.BytesToAddress(s.read(common.AddressLength)).Hex()
}

// TxHash returns a 32-byte hex hash for a simulated on-chain release.
func (s *Source) TxHash() string {
	return common.BytesToHash(s.read(common.HashLength)).Hex()
}

// EncryptionTag returns the abbreviated "sha256:xxxxxxxx..." badge attached
// to messages in peer-to-peer threads.
func (s *Source) EncryptionTag() string {
	return "sha256:" + hex.EncodeToString(s.read(4)) + "..."
}

// TransactionID returns "WP-" plus 9 characters for card payments and
// "WP-TX-" plus 12 characters for crypto payments.
func (s *Source) TransactionID(method domain.PaymentMethod) string {
	if method == domain.PaymentCrypto {
		return "WP-TX-" + s.base36(12)
	}
	return "WP-" + s.base36(9)
}

func (s *Source) base36(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for _, b := range s.read(n) {
		sb.WriteByte(base36[int(b)%len(base36)])
	}
	return sb.String()
}
