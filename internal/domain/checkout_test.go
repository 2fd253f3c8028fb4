package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCheckoutDeadlineJSON(t *testing.T) {
	waiting, err := json.Marshal(Checkout{State: CheckoutReview})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(waiting), `"deadline"`) {
		t.Fatalf("waiting checkout = %s, want no deadline", waiting)
	}

	timed, err := json.Marshal(Checkout{
		State:    CheckoutCardPayment,
		Deadline: time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(timed), `"deadline":"2026-03-01T12:00:02Z"`) {
		t.Fatalf("timed checkout = %s, want deadline", timed)
	}
}

func TestCheckoutDone(t *testing.T) {
	if (Checkout{State: CheckoutCryptoPayment}).Done() {
		t.Fatal("Done() = true for crypto_payment")
	}
	if !(Checkout{State: CheckoutSuccess}).Done() {
		t.Fatal("Done() = false for success")
	}
}
