// Package memory implements the domain bus and limiter interfaces inside the
// process, for the standalone mode.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// subscriberBuffer is the per-subscriber channel capacity. Publish drops
// payloads for subscribers that fall this far behind.
const subscriberBuffer = 128

// SignalBus implements domain.SignalBus with in-process fan-out and bounded
// replay streams.
type SignalBus struct {
	mu      sync.Mutex
	subs    map[string]map[chan []byte]struct{}
	streams map[string]*stream
	maxLen  int
}

type stream struct {
	seq     uint64
	entries []domain.StreamMessage
}

// NewSignalBus creates a SignalBus whose streams keep at most maxLen entries.
func NewSignalBus(maxLen int) *SignalBus {
	return &SignalBus{
		subs:    make(map[string]map[chan []byte]struct{}),
		streams: make(map[string]*stream),
		maxLen:  maxLen,
	}
}

// Publish delivers payload to every current subscriber of channel.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber on channel. The returned channel is closed
// when ctx is cancelled.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}

// StreamAppend appends payload to the named stream, trimming the oldest
// entries beyond maxLen.
func (b *SignalBus) StreamAppend(_ context.Context, name string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.streams[name]
	if s == nil {
		s = &stream{}
		b.streams[name] = s
	}
	s.seq++
	s.entries = append(s.entries, domain.StreamMessage{
		ID:      strconv.FormatUint(s.seq, 10) + "-0",
		Payload: payload,
	})
	if b.maxLen > 0 && len(s.entries) > b.maxLen {
		s.entries = append([]domain.StreamMessage(nil), s.entries[len(s.entries)-b.maxLen:]...)
	}
	return nil
}

// StreamRead returns up to count entries with an ID after lastID. "0" and
// "0-0" read from the beginning.
func (b *SignalBus) StreamRead(_ context.Context, name string, lastID string, count int) ([]domain.StreamMessage, error) {
	after, err := parseStreamID(lastID)
	if err != nil {
		return nil, fmt.Errorf("memory: stream read %s: %w", name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.streams[name]
	if s == nil {
		return nil, nil
	}
	var out []domain.StreamMessage
	for _, e := range s.entries {
		seq, _ := parseStreamID(e.ID)
		if seq <= after {
			continue
		}
		out = append(out, e)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

func parseStreamID(id string) (uint64, error) {
	head, _, _ := strings.Cut(id, "-")
	if head == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stream id %q: %w", id, domain.ErrInvalidInput)
	}
	return n, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
