package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/service"
)

// OnboardingService defines the wizard operations the handler drives.
type OnboardingService interface {
	State() service.WizardState
	SelectRole(ctx context.Context, role domain.Role) (service.WizardState, error)
	SubmitContact(ctx context.Context, info service.ContactInfo) (service.WizardState, error)
	Snapshot(ctx context.Context) (service.WizardState, error)
	SubmitAvatar(ctx context.Context, image string) (service.WizardState, error)
	SubmitIdentity(ctx context.Context, idType, idNumber string) (service.WizardState, error)
	Back(ctx context.Context) (service.WizardState, error)
	Confirm(ctx context.Context) (domain.Actor, error)
	Reset(ctx context.Context) service.WizardState
}

// SessionReader returns the current actor.
type SessionReader interface {
	Get(ctx context.Context) (domain.Actor, error)
}

// OnboardingHandler serves the session creation wizard.
type OnboardingHandler struct {
	wizard   OnboardingService
	sessions SessionReader
	logger   *slog.Logger
}

// NewOnboardingHandler creates an OnboardingHandler.
func NewOnboardingHandler(wizard OnboardingService, sessions SessionReader, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{wizard: wizard, sessions: sessions, logger: logger}
}

// GetState returns the wizard snapshot.
// GET /api/onboarding
func (h *OnboardingHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wizard.State())
}

// ListCountries returns the residence menu with accepted documents.
// GET /api/onboarding/countries
func (h *OnboardingHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"countries": service.Countries})
}

// SelectRole handles step 1.
// POST /api/onboarding/role {"role":"standard"}
func (h *OnboardingHandler) SelectRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role domain.Role `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, "select role")(h.wizard.SelectRole(r.Context(), req.Role))
}

// SubmitContact handles step 2.
// POST /api/onboarding/contact
func (h *OnboardingHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		Country     string `json:"country"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, "submit contact")(h.wizard.SubmitContact(r.Context(), service.ContactInfo{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Country:     req.Country,
		DateOfBirth: req.DateOfBirth,
	}))
}

// Snapshot captures the camera frame as the avatar.
// POST /api/onboarding/snapshot
func (h *OnboardingHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "snapshot")(h.wizard.Snapshot(r.Context()))
}

// SubmitAvatar handles step 3. The image comes as a multipart "image" file or
// as a JSON data URL; neither keeps the current avatar.
// POST /api/onboarding/avatar
func (h *OnboardingHandler) SubmitAvatar(w http.ResponseWriter, r *http.Request) {
	var image string
	if isMultipart(r) {
		var err error
		if image, err = readUpload(w, r, "image"); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req struct {
			Image string `json:"image"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		image = req.Image
	}
	h.respond(w, r, "submit avatar")(h.wizard.SubmitAvatar(r.Context(), image))
}

// SubmitIdentity handles step 4.
// POST /api/onboarding/identity {"id_type":"Passport","id_number":"A123"}
func (h *OnboardingHandler) SubmitIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDType   string `json:"id_type"`
		IDNumber string `json:"id_number"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respond(w, r, "submit identity")(h.wizard.SubmitIdentity(r.Context(), req.IDType, req.IDNumber))
}

// Back returns to the previous step.
// POST /api/onboarding/back
func (h *OnboardingHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "back")(h.wizard.Back(r.Context()))
}

// Confirm finishes the wizard and creates the session.
// POST /api/onboarding/confirm
func (h *OnboardingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, err := h.wizard.Confirm(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "confirm onboarding", err)
		return
	}
	writeJSON(w, http.StatusCreated, actor)
}

// Reset restarts the wizard.
// POST /api/onboarding/reset
func (h *OnboardingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wizard.Reset(r.Context()))
}

// GetSession returns the current actor.
// GET /api/session
func (h *OnboardingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	actor, err := h.sessions.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

// respond writes the wizard state or the mapped error. Rejected steps still
// carry the unchanged state so the client can redraw.
func (h *OnboardingHandler) respond(w http.ResponseWriter, r *http.Request, op string) func(service.WizardState, error) {
	return func(st service.WizardState, err error) {
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				writeServiceError(w, r, h.logger, op, err)
				return
			}
			writeJSON(w, status, map[string]any{"error": err.Error(), "state": st})
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
