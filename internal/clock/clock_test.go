package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewManual(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}
	got := c.Advance(1500 * time.Millisecond)
	if want := start.Add(1500 * time.Millisecond); !got.Equal(want) || !c.Now().Equal(want) {
		t.Fatalf("Advance() = %v, want %v", got, want)
	}
}
