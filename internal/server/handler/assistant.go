package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// AssistantService defines the text generation operations.
type AssistantService interface {
	Chat(ctx context.Context, message, platformContext string) string
	DraftDescription(ctx context.Context, name, category, features string) (string, error)
}

// AssistantHandler serves the support chat and listing description drafts.
type AssistantHandler struct {
	assistant AssistantService
	logger    *slog.Logger
}

// NewAssistantHandler creates an AssistantHandler.
func NewAssistantHandler(assistant AssistantService, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, logger: logger}
}

// Chat answers a support question. Generator failures degrade to a canned
// reply, so this never fails once the request parses.
// POST /api/assistant/chat {"message":"...","context":"..."}
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
		Context string `json:"context"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply": h.assistant.Chat(r.Context(), req.Message, req.Context),
	})
}

// Describe drafts a listing description.
// POST /api/assistant/describe {"name":"...","category":"...","features":"..."}
func (h *AssistantHandler) Describe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Features string `json:"features"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, err := h.assistant.DraftDescription(r.Context(), req.Name, req.Category, req.Features)
	if err != nil {
		writeServiceError(w, r, h.logger, "describe", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": desc})
}
