package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNoSession            = errors.New("no active session")
	ErrSpendingLimit        = errors.New("transaction exceeds spending limit")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrWizardStep           = errors.New("onboarding step out of order")
	ErrTierNotUpgradable    = errors.New("tier cannot be lowered or repeated")
	ErrEmptyMessage         = errors.New("message has no text or image")
	ErrDeviceUnavailable    = errors.New("capture device unavailable")
	ErrGeneratorUnavailable = errors.New("text generator unavailable")
)
