package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/cache/memory"
	"github.com/alanyoungcy/marketlinks/internal/clock"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuth(t *testing.T) {
	h := Auth("secret", "/api/health", "/metrics")(okHandler)

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{name: "public path", path: "/api/health", want: http.StatusOK},
		{name: "public prefix boundary", path: "/api/healthz", want: http.StatusUnauthorized},
		{name: "missing token", path: "/api/listings", want: http.StatusUnauthorized},
		{name: "bearer", path: "/api/listings", header: map[string]string{"Authorization": "Bearer secret"}, want: http.StatusOK},
		{name: "api key header", path: "/api/listings", header: map[string]string{"X-API-Key": "secret"}, want: http.StatusOK},
		{name: "wrong key", path: "/api/listings", header: map[string]string{"X-API-Key": "nope"}, want: http.StatusUnauthorized},
		{name: "ws query token", path: "/ws?token=secret", want: http.StatusOK},
		{name: "query token ignored off ws", path: "/api/listings?token=secret", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	t.Run("empty key disables auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Auth("")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(okHandler)

	t.Run("allowed origin preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/listings", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Fatalf("Allow-Origin = %q", got)
		}
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("Allow-Origin = %q, want empty", got)
		}
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	h := RateLimit(memory.NewRateLimiter(clk), 2, time.Minute, logger)(okHandler)

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
		req.RemoteAddr = ip + ":4242"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := range 2 {
		if rec := do("10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}
	rec := do("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("Retry-After = %q, want 60", got)
	}
	if rec := do("10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", rec.Code)
	}

	clk.Advance(time.Minute)
	if rec := do("10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("next window status = %d, want 200", rec.Code)
	}

	t.Run("limiter error fails open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RateLimit(failingLimiter{}, 1, time.Minute, logger)(okHandler).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("clientIP() = %q, want 203.0.113.7", got)
	}
}
