package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/service"
)

var (
	testLogger    = slog.New(slog.NewTextHandler(io.Discard, nil))
	testStartedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func serve(t *testing.T, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("checkout_service: start: %w", domain.ErrNoSession), http.StatusUnauthorized},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrSpendingLimit, http.StatusForbidden},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrWizardStep, http.StatusConflict},
		{domain.ErrTierNotUpgradable, http.StatusConflict},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrEmptyMessage, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

type fakeCatalog struct {
	filter domain.ListingFilter
}

func (f *fakeCatalog) Filter(_ context.Context, lf domain.ListingFilter) ([]domain.Listing, error) {
	f.filter = lf
	return nil, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (domain.Listing, error) {
	if id != "1" {
		return domain.Listing{}, fmt.Errorf("catalog_service: get %s: %w", id, domain.ErrNotFound)
	}
	return domain.Listing{ID: "1", Title: "Vintage Camera"}, nil
}

func (f *fakeCatalog) Categories(context.Context) ([]string, error) {
	return []string{"All", "Electronics"}, nil
}

func (f *fakeCatalog) CreateListing(context.Context, service.ListingDraft) (domain.Listing, error) {
	return domain.Listing{}, domain.ErrNoSession
}

func TestListingHandler(t *testing.T) {
	catalog := &fakeCatalog{}
	h := NewListingHandler(catalog, testLogger)

	t.Run("filter query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/listings?q=cam&category=Electronics&min_price=10&max_price=200&min_rating=4.5", nil)
		rec := serve(t, "GET /api/listings", h.ListListings, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		f := catalog.filter
		if f.Query != "cam" || f.Category != "Electronics" || f.MinRating != 4.5 {
			t.Fatalf("filter = %+v", f)
		}
		if f.MinPrice == nil || !f.MinPrice.Equal(decimal.NewFromInt(10)) || f.MaxPrice == nil || !f.MaxPrice.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("price bounds = %v, %v", f.MinPrice, f.MaxPrice)
		}
		var body listListingsResponse
		decodeBody(t, rec, &body)
		if body.Listings == nil || body.Count != 0 {
			t.Fatalf("body = %+v, want empty non-nil listings", body)
		}
	})

	t.Run("bad price", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/listings?min_price=abc", nil)
		if rec := serve(t, "GET /api/listings", h.ListListings, req); rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown listing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/listings/99", nil)
		if rec := serve(t, "GET /api/listings/{id}", h.GetListing, req); rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("create without session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader(`{"title":"Lamp","price":"10"}`))
		if rec := serve(t, "POST /api/listings", h.CreateListing, req); rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

type fakeCheckouts struct {
	CheckoutService
	method domain.PaymentMethod
}

func (f *fakeCheckouts) SelectMethod(_ context.Context, id string, m domain.PaymentMethod) (domain.Checkout, error) {
	f.method = m
	c := domain.Checkout{ID: id, State: domain.CheckoutReview, Notice: "Transaction exceeds your Tier 1 limit of $500."}
	return c, fmt.Errorf("checkout_service: select method: %w", domain.ErrSpendingLimit)
}

func (f *fakeCheckouts) Get(_ context.Context, id string) (domain.Checkout, error) {
	return domain.Checkout{}, fmt.Errorf("checkout_service: get %s: %w", id, domain.ErrNotFound)
}

func TestCheckoutHandlerCarriesNotice(t *testing.T) {
	svc := &fakeCheckouts{}
	h := NewCheckoutHandler(svc, testLogger)

	req := httptest.NewRequest(http.MethodPost, "/api/checkouts/c1/method", strings.NewReader(`{"method":"crypto"}`))
	rec := serve(t, "POST /api/checkouts/{id}/method", h.SelectMethod, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if svc.method != domain.PaymentCrypto {
		t.Fatalf("method = %q, want crypto", svc.method)
	}
	var body struct {
		Error    string          `json:"error"`
		Checkout domain.Checkout `json:"checkout"`
	}
	decodeBody(t, rec, &body)
	if body.Checkout.ID != "c1" || !strings.Contains(body.Checkout.Notice, "Tier 1 limit") {
		t.Fatalf("checkout = %+v", body.Checkout)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/checkouts/zz", nil)
	if rec := serve(t, "GET /api/checkouts/{id}", h.GetCheckout, req); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown checkout status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/checkouts", strings.NewReader(`{}`))
	if rec := serve(t, "POST /api/checkouts", h.StartCheckout, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing listing status = %d, want 400", rec.Code)
	}
}

type fakeConversations struct {
	ConversationService
	text, image string
}

func (f *fakeConversations) Send(_ context.Context, id, text, image string) (domain.Message, error) {
	if text == "" && image == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}
	f.text, f.image = text, image
	return domain.Message{ID: "m3", Sender: domain.SenderBuyer, Text: text, Image: image}, nil
}

func TestSendMessage(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		svc := &fakeConversations{}
		h := NewConversationHandler(svc, testLogger)
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/chat-1/messages", strings.NewReader(`{"text":"Is it available?"}`))
		rec := serve(t, "POST /api/conversations/{id}/messages", h.SendMessage, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if svc.text != "Is it available?" {
			t.Fatalf("text = %q", svc.text)
		}
	})

	t.Run("multipart image", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("text", "photo")
		fw, _ := mw.CreateFormFile("image", "shot.png")
		fw.Write([]byte{0x89, 'P', 'N', 'G'})
		mw.Close()

		svc := &fakeConversations{}
		h := NewConversationHandler(svc, testLogger)
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/chat-1/messages", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := serve(t, "POST /api/conversations/{id}/messages", h.SendMessage, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
		}
		if svc.text != "photo" || !strings.HasPrefix(svc.image, "data:") {
			t.Fatalf("text = %q, image = %q", svc.text, svc.image)
		}
	})

	t.Run("empty", func(t *testing.T) {
		h := NewConversationHandler(&fakeConversations{}, testLogger)
		req := httptest.NewRequest(http.MethodPost, "/api/conversations/chat-1/messages", strings.NewReader(`{}`))
		if rec := serve(t, "POST /api/conversations/{id}/messages", h.SendMessage, req); rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

type fakeAssistant struct{}

func (fakeAssistant) Chat(context.Context, string, string) string { return service.FallbackChat }

func (fakeAssistant) DraftDescription(_ context.Context, name, _, features string) (string, error) {
	if name == "" || features == "" {
		return "", domain.ErrInvalidInput
	}
	return "desc", nil
}

func TestAssistantHandler(t *testing.T) {
	h := NewAssistantHandler(fakeAssistant{}, testLogger)

	req := httptest.NewRequest(http.MethodPost, "/api/assistant/chat", strings.NewReader(`{"message":"fees?"}`))
	rec := serve(t, "POST /api/assistant/chat", h.Chat, req)
	var chat map[string]string
	decodeBody(t, rec, &chat)
	if rec.Code != http.StatusOK || chat["reply"] != service.FallbackChat {
		t.Fatalf("chat = %d %v", rec.Code, chat)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/assistant/chat", strings.NewReader(`{}`))
	if rec := serve(t, "POST /api/assistant/chat", h.Chat, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty chat status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/assistant/describe", strings.NewReader(`{"name":"Lamp"}`))
	if rec := serve(t, "POST /api/assistant/describe", h.Describe, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("describe without features status = %d, want 400", rec.Code)
	}
}

type staticGenerator bool

func (g staticGenerator) Available() bool { return bool(g) }

func TestHealthCheck(t *testing.T) {
	for _, tt := range []struct {
		gen  GeneratorStatus
		want string
	}{
		{staticGenerator(true), "active"},
		{staticGenerator(false), "missing"},
		{nil, "missing"},
	} {
		h := NewHealthHandler(tt.gen, "standalone", testStartedAt, testLogger)
		rec := serve(t, "GET /api/health", h.HealthCheck, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		var body map[string]any
		decodeBody(t, rec, &body)
		if body["generator"] != tt.want {
			t.Fatalf("generator = %v, want %s", body["generator"], tt.want)
		}
	}
}
