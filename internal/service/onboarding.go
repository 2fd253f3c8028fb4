package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/marketlinks/internal/capture"
	"github.com/alanyoungcy/marketlinks/internal/clock"
	"github.com/alanyoungcy/marketlinks/internal/domain"
	"github.com/alanyoungcy/marketlinks/internal/labels"
)

// WizardStep numbers the onboarding steps. StepDone follows a confirmed
// wizard.
type WizardStep int

const (
	StepRole WizardStep = iota + 1
	StepContact
	StepAvatar
	StepIdentity
	StepConfirm
	StepDone
)

// Countries is the residence menu with the identity documents each accepts.
var Countries = []domain.Country{
	{
		Code:           "US",
		Name:           "United States",
		IDTypes:        []string{"Driver License", "Passport", "SSN"},
		RegulatoryBody: "FINCEN / SEC",
		LegalNotice:    "Subject to US Federal AML/KYC laws. High-volume trades may require SSN disclosure.",
	},
	{
		Code:           "GB",
		Name:           "United Kingdom",
		IDTypes:        []string{"Passport", "BRP", "Driving Licence"},
		RegulatoryBody: "FCA / GDPR",
		LegalNotice:    "Compliant with UK Financial Conduct Authority and GDPR.",
	},
	{
		Code:           "NG",
		Name:           "Nigeria",
		IDTypes:        []string{"National ID", "NIN", "BVN", "Voters Card", "Passport"},
		RegulatoryBody: "CBN / SEC NG",
		LegalNotice:    "BVN/NIN validation is mandatory for P2P Fiat-to-Crypto settlement.",
	},
	{
		Code:           "KE",
		Name:           "Kenya",
		IDTypes:        []string{"National ID", "Passport", "Huduma Namba"},
		RegulatoryBody: "CBK / ODPC",
		LegalNotice:    "Strict adherence to the Data Protection Act 2019.",
	},
	{
		Code:           "OTHER",
		Name:           "Other International",
		IDTypes:        []string{"Passport", "National ID"},
		RegulatoryBody: "FATF Standards",
		LegalNotice:    "Aligned with Global AML recommendations.",
	},
}

// LookupCountry returns the country with code.
func LookupCountry(code string) (domain.Country, bool) {
	for _, c := range Countries {
		if c.Code == code {
			return c, true
		}
	}
	return domain.Country{}, false
}

// ContactInfo is the basic-info step input.
type ContactInfo struct {
	Name        string
	Email       string
	Phone       string
	Country     string // country code
	DateOfBirth string
}

// WizardState is a snapshot of the onboarding wizard.
type WizardState struct {
	Step         WizardStep     `json:"step"`
	Role         domain.Role    `json:"role,omitempty"`
	Name         string         `json:"name,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Country      domain.Country `json:"country"`
	DateOfBirth  string         `json:"date_of_birth,omitempty"`
	Avatar       string         `json:"avatar"`
	IDType       string         `json:"id_type,omitempty"`
	IDNumber     string         `json:"id_number,omitempty"`
	CameraActive bool           `json:"camera_active"`
	Notice       string         `json:"notice,omitempty"`
}

// OnboardingConfig tunes the wizard.
type OnboardingConfig struct {
	DefaultCountry string
	// EmailOwnerHeuristic grants the owner role when the email contains
	// "admin", on top of explicit owner selection.
	EmailOwnerHeuristic bool
}

// OnboardingService runs the five-step wizard that creates the session
// actor. The camera is held only while the wizard sits on the avatar step.
type OnboardingService struct {
	sessions domain.SessionStore
	device   capture.Device
	labels   *labels.Source
	clock    clock.Clock
	events   *EventPublisher
	cfg      OnboardingConfig
	logger   *slog.Logger

	mu     sync.Mutex
	state  WizardState
	stream capture.Stream
}

// NewOnboardingService creates an OnboardingService positioned on the role
// step.
func NewOnboardingService(
	sessions domain.SessionStore,
	device capture.Device,
	src *labels.Source,
	clk clock.Clock,
	events *EventPublisher,
	cfg OnboardingConfig,
	logger *slog.Logger,
) *OnboardingService {
	if _, ok := LookupCountry(cfg.DefaultCountry); !ok {
		cfg.DefaultCountry = "NG"
	}
	s := &OnboardingService{
		sessions: sessions,
		device:   device,
		labels:   src,
		clock:    clk,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
	s.state = s.initialState()
	return s
}

func (s *OnboardingService) initialState() WizardState {
	country, _ := LookupCountry(s.cfg.DefaultCountry)
	return WizardState{
		Step:    StepRole,
		Country: country,
		Avatar:  domain.PlaceholderAvatar,
	}
}

// State returns the current wizard snapshot.
func (s *OnboardingService) State() WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *OnboardingService) expect(step WizardStep) error {
	if s.state.Step != step {
		return fmt.Errorf("onboarding_service: at step %d, want %d: %w", s.state.Step, step, domain.ErrWizardStep)
	}
	return nil
}

// SelectRole records the role and advances to the contact step.
func (s *OnboardingService) SelectRole(_ context.Context, role domain.Role) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepRole); err != nil {
		return s.state, err
	}
	if !role.Valid() {
		return s.state, fmt.Errorf("onboarding_service: role %q: %w", role, domain.ErrInvalidInput)
	}
	s.state.Role = role
	s.state.Step = StepContact
	return s.state, nil
}

// SubmitContact records the basic info and advances to the avatar step,
// opening the camera. A camera failure is not an error: the placeholder image
// stays and upload remains possible.
func (s *OnboardingService) SubmitContact(ctx context.Context, info ContactInfo) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepContact); err != nil {
		return s.state, err
	}
	info.Name = strings.TrimSpace(info.Name)
	info.Email = strings.TrimSpace(info.Email)
	var problems []string
	if info.Name == "" {
		problems = append(problems, "name is required")
	}
	if info.Email == "" {
		problems = append(problems, "email is required")
	}
	code := info.Country
	if code == "" {
		code = s.state.Country.Code
	}
	country, ok := LookupCountry(code)
	if !ok {
		problems = append(problems, fmt.Sprintf("unknown country %q", info.Country))
	}
	if len(problems) > 0 {
		return s.state, fmt.Errorf("onboarding_service: contact: %w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}

	if country.Code != s.state.Country.Code {
		// A new country invalidates the document chosen for the old one.
		s.state.IDType = ""
	}
	s.state.Name = info.Name
	s.state.Email = info.Email
	s.state.Phone = strings.TrimSpace(info.Phone)
	s.state.Country = country
	s.state.DateOfBirth = info.DateOfBirth
	s.state.Step = StepAvatar
	s.openCamera(ctx)
	return s.state, nil
}

func (s *OnboardingService) openCamera(ctx context.Context) {
	s.state.Notice = ""
	stream, err := s.device.Acquire(ctx)
	if err != nil {
		s.state.CameraActive = false
		s.logger.InfoContext(ctx, "onboarding_service: camera unavailable, keeping placeholder",
			slog.String("error", err.Error()),
		)
		return
	}
	s.stream = stream
	s.state.CameraActive = true
}

func (s *OnboardingService) closeCamera(ctx context.Context) {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.logger.WarnContext(ctx, "onboarding_service: release camera failed",
			slog.String("error", err.Error()),
		)
	}
	s.stream = nil
	s.state.CameraActive = false
}

// Snapshot captures the camera frame as the avatar. Failure leaves the
// current avatar and sets a notice.
func (s *OnboardingService) Snapshot(ctx context.Context) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepAvatar); err != nil {
		return s.state, err
	}
	if s.stream == nil {
		s.state.Notice = "Camera unavailable. Upload a photo or continue with the default avatar."
		return s.state, nil
	}
	img, err := s.stream.Snapshot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "onboarding_service: snapshot failed",
			slog.String("error", err.Error()),
		)
		s.state.Notice = "Could not capture a photo. Try again or upload one."
		return s.state, nil
	}
	s.state.Avatar = img
	s.state.Notice = ""
	return s.state, nil
}

// SubmitAvatar stores an uploaded image (a data URL) when given, releases the
// camera and advances to the identity step. An empty image keeps the current
// avatar.
func (s *OnboardingService) SubmitAvatar(ctx context.Context, image string) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepAvatar); err != nil {
		return s.state, err
	}
	if image != "" {
		s.state.Avatar = image
	}
	s.closeCamera(ctx)
	s.state.Notice = ""
	s.state.Step = StepIdentity
	return s.state, nil
}

// SubmitIdentity checks the document fields and advances to confirmation.
// Verification is only a non-empty check against the country's menu.
func (s *OnboardingService) SubmitIdentity(_ context.Context, idType, idNumber string) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepIdentity); err != nil {
		return s.state, err
	}
	idNumber = strings.TrimSpace(idNumber)
	if idType == "" || idNumber == "" {
		return s.state, fmt.Errorf("onboarding_service: identity: %w: document type and number are required", domain.ErrInvalidInput)
	}
	if !s.state.Country.AcceptsIDType(idType) {
		return s.state, fmt.Errorf("onboarding_service: identity: %w: %q is not accepted in %s",
			domain.ErrInvalidInput, idType, s.state.Country.Name)
	}
	s.state.IDType = idType
	s.state.IDNumber = idNumber
	s.state.Step = StepConfirm
	return s.state, nil
}

// Back returns to the previous step, releasing or reacquiring the camera as
// the avatar step is left or re-entered.
func (s *OnboardingService) Back(ctx context.Context) (WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Step {
	case StepRole, StepDone:
		return s.state, fmt.Errorf("onboarding_service: back from step %d: %w", s.state.Step, domain.ErrWizardStep)
	case StepAvatar:
		s.closeCamera(ctx)
	case StepIdentity:
		s.openCamera(ctx)
	}
	s.state.Step--
	return s.state, nil
}

// Confirm creates the session actor at tier 1.
func (s *OnboardingService) Confirm(ctx context.Context) (domain.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepConfirm); err != nil {
		return domain.Actor{}, err
	}

	role := s.state.Role
	if s.cfg.EmailOwnerHeuristic && role != domain.RoleOwner &&
		strings.Contains(strings.ToLower(s.state.Email), "admin") {
		s.logger.WarnContext(ctx, "onboarding_service: owner role granted by email heuristic",
			slog.String("email", s.state.Email),
		)
		role = domain.RoleOwner
	}

	balances := make(map[string]decimal.Decimal, len(domain.CryptoSymbols))
	for _, sym := range domain.CryptoSymbols {
		balances[sym] = decimal.Zero
	}
	now := s.clock.Now()
	actor := domain.Actor{
		ID:              s.labels.ID(),
		Name:            s.state.Name,
		Email:           s.state.Email,
		Phone:           s.state.Phone,
		Country:         s.state.Country.Name,
		DateOfBirth:     s.state.DateOfBirth,
		IDType:          s.state.IDType,
		IDNumber:        s.state.IDNumber,
		Avatar:          s.state.Avatar,
		Role:            role,
		Verified:        true,
		Tier:            domain.TierBasic,
		SpendingCeiling: domain.TierBasic.Ceiling(),
		WalletAddress:   s.labels.WalletAddress(),
		Balances:        balances,
		JoinedAt:        now,
	}
	if err := s.sessions.Create(ctx, actor); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Actor{}, fmt.Errorf("onboarding_service: confirm: %w", err)
		}
		return domain.Actor{}, fmt.Errorf("onboarding_service: create session: %w", err)
	}
	s.state.Step = StepDone

	s.events.Publish(ctx, domain.EventSessionCreated, now, actor)
	s.logger.InfoContext(ctx, "onboarding_service: session created",
		slog.String("actor_id", actor.ID),
		slog.String("role", string(actor.Role)),
		slog.String("country", actor.Country),
	)
	return actor, nil
}

// Reset discards the draft and returns to the role step. An existing session
// is kept.
func (s *OnboardingService) Reset(ctx context.Context) WizardState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeCamera(ctx)
	s.state = s.initialState()
	return s.state
}
