// Package config defines the top-level configuration for the marketplace
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETD_* environment variables.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Gemini     GeminiConfig     `toml:"gemini"`
	Redis      RedisConfig      `toml:"redis"`
	Bus        BusConfig        `toml:"bus"`
	Simulation SimulationConfig `toml:"simulation"`
	Onboarding OnboardingConfig `toml:"onboarding"`
	Capture    CaptureConfig    `toml:"capture"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimitPerMinute caps requests per client IP. Zero disables limiting.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// GeminiConfig holds the hosted text-generation credentials. An empty APIKey
// leaves the assistant on its fallback replies.
type GeminiConfig struct {
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout duration `toml:"timeout"`
}

// RedisConfig holds Redis connection parameters. Only used in clustered mode.
// Namespace prefixes every key so marketplaces can share one Redis.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	Namespace  string `toml:"namespace"`
}

// BusConfig sizes the event bus.
type BusConfig struct {
	// ReplayLen is the number of recent events kept for late subscribers.
	ReplayLen int `toml:"replay_len"`
}

// SimulationConfig holds the delays of the simulated escrow and payment flow.
type SimulationConfig struct {
	TickInterval   duration `toml:"tick_interval"`
	EscrowLock     duration `toml:"escrow_lock"`
	CardConfirm    duration `toml:"card_confirm"`
	CryptoValidate duration `toml:"crypto_validate"`
	CryptoRelease  duration `toml:"crypto_release"`
	Handshake      duration `toml:"handshake"`
	ScanStep       duration `toml:"scan_step"`
	ScanIncrement  int      `toml:"scan_increment"`
}

// OnboardingConfig tunes session creation.
type OnboardingConfig struct {
	DefaultCountry string `toml:"default_country"`
	// EmailOwnerHeuristic grants the owner role to any email containing
	// "admin". Off by default.
	EmailOwnerHeuristic bool `toml:"email_owner_heuristic"`
}

// CaptureConfig selects the camera device. Device is "none" or "file".
type CaptureConfig struct {
	Device    string `toml:"device"`
	FramePath string `toml:"frame_path"`
}

// NotifyConfig holds the operator alert channels. Storefront names the
// marketplace in every alert.
type NotifyConfig struct {
	Storefront        string   `toml:"storefront"`
	TelegramBotToken  string   `toml:"telegram_bot_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "3s", "100ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the values of marketd.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Gemini: GeminiConfig{
			Model:   "gemini-1.5-flash",
			Timeout: duration{20 * time.Second},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			Namespace:  "marketlinks",
		},
		Bus: BusConfig{
			ReplayLen: 256,
		},
		Simulation: SimulationConfig{
			TickInterval:   duration{100 * time.Millisecond},
			EscrowLock:     duration{3 * time.Second},
			CardConfirm:    duration{2 * time.Second},
			CryptoValidate: duration{4 * time.Second},
			CryptoRelease:  duration{3 * time.Second},
			Handshake:      duration{2 * time.Second},
			ScanStep:       duration{100 * time.Millisecond},
			ScanIncrement:  5,
		},
		Onboarding: OnboardingConfig{
			DefaultCountry: "NG",
		},
		Capture: CaptureConfig{
			Device: "none",
		},
		Notify: NotifyConfig{
			Storefront: "Willy Paully Links",
			Events: []string{"transaction_completed", "tier_upgraded", "session_created"},
		},
		Mode:     "standalone",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"standalone": true,
	"clustered":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: standalone, clustered)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, "server: rate_limit_per_minute must be >= 0")
	}

	// Gemini
	if c.Gemini.APIKey != "" && c.Gemini.Model == "" {
		errs = append(errs, "gemini: model must not be empty when api_key is set")
	}

	// Redis is only dialled in clustered mode.
	if strings.ToLower(c.Mode) == "clustered" {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty in clustered mode")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Bus.ReplayLen < 0 {
		errs = append(errs, "bus: replay_len must be >= 0")
	}

	// Simulation
	sim := c.Simulation
	if sim.TickInterval.Duration <= 0 {
		errs = append(errs, "simulation: tick_interval must be > 0")
	}
	delays := []struct {
		name string
		d    duration
	}{
		{"escrow_lock", sim.EscrowLock},
		{"card_confirm", sim.CardConfirm},
		{"crypto_validate", sim.CryptoValidate},
		{"crypto_release", sim.CryptoRelease},
		{"handshake", sim.Handshake},
	}
	for _, delay := range delays {
		if delay.d.Duration < 0 {
			errs = append(errs, fmt.Sprintf("simulation: %s must be >= 0", delay.name))
		}
	}
	if sim.ScanStep.Duration <= 0 {
		errs = append(errs, "simulation: scan_step must be > 0")
	}
	if sim.ScanIncrement < 1 || sim.ScanIncrement > 100 {
		errs = append(errs, fmt.Sprintf("simulation: scan_increment must be 1-100, got %d", sim.ScanIncrement))
	}

	// Capture
	switch c.Capture.Device {
	case "none":
	case "file":
		if c.Capture.FramePath == "" {
			errs = append(errs, "capture: frame_path is required for the file device")
		}
	default:
		errs = append(errs, fmt.Sprintf("capture: unknown device %q (valid: none, file)", c.Capture.Device))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
