package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketlinks/internal/domain"
)

// ConversationService defines the chat operations the handler needs.
type ConversationService interface {
	List(ctx context.Context) ([]domain.Conversation, error)
	Open(ctx context.Context, id string) (domain.Conversation, error)
	Start(ctx context.Context, listingID string) (domain.Conversation, error)
	Send(ctx context.Context, id, text, image string) (domain.Message, error)
	Advice(ctx context.Context, id string) (string, error)
}

// ConversationHandler serves chat threads.
type ConversationHandler struct {
	conversations ConversationService
	logger        *slog.Logger
}

// NewConversationHandler creates a ConversationHandler.
func NewConversationHandler(conversations ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// ListConversations returns every thread.
// GET /api/conversations
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.conversations.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list conversations", err)
		return
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// StartConversation opens or reuses the thread for a listing's seller.
// POST /api/conversations {"listing_id":"1"}
func (h *ConversationHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListingID string `json:"listing_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ListingID == "" {
		writeError(w, http.StatusBadRequest, "listing_id is required")
		return
	}
	conv, err := h.conversations.Start(r.Context(), req.ListingID)
	if err != nil {
		writeServiceError(w, r, h.logger, "start conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// GetConversation opens a thread.
// GET /api/conversations/{id}
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Open(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "open conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// SendMessage appends a buyer message. The body is JSON {"text","image"} or a
// multipart form with a "text" field and an "image" file.
// POST /api/conversations/{id}/messages
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if isMultipart(r) {
		image, err := readUpload(w, r, "image")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Text = r.FormValue("text")
		req.Image = image
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.conversations.Send(r.Context(), pathParam(r, "id"), req.Text, req.Image)
	if err != nil {
		writeServiceError(w, r, h.logger, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// GetAdvice returns negotiation advice for the thread.
// POST /api/conversations/{id}/advice
func (h *ConversationHandler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	advice, err := h.conversations.Advice(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "advice", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"advice": advice})
}
