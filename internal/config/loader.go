package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETD_* environment variable overrides, and
// returns the final Config. A missing file is not an error: the daemon then
// runs on defaults and environment. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETD_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "MARKETD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MARKETD_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "MARKETD_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Gemini ──
	setStr(&cfg.Gemini.APIKey, "GEMINI_API_KEY") // shared with other tooling
	setStr(&cfg.Gemini.APIKey, "MARKETD_GEMINI_API_KEY")
	setStr(&cfg.Gemini.Model, "MARKETD_GEMINI_MODEL")
	setDuration(&cfg.Gemini.Timeout, "MARKETD_GEMINI_TIMEOUT")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MARKETD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETD_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Namespace, "MARKETD_REDIS_NAMESPACE")

	// ── Bus ──
	setInt(&cfg.Bus.ReplayLen, "MARKETD_BUS_REPLAY_LEN")

	// ── Simulation ──
	setDuration(&cfg.Simulation.TickInterval, "MARKETD_SIMULATION_TICK_INTERVAL")
	setDuration(&cfg.Simulation.EscrowLock, "MARKETD_SIMULATION_ESCROW_LOCK")
	setDuration(&cfg.Simulation.CardConfirm, "MARKETD_SIMULATION_CARD_CONFIRM")
	setDuration(&cfg.Simulation.CryptoValidate, "MARKETD_SIMULATION_CRYPTO_VALIDATE")
	setDuration(&cfg.Simulation.CryptoRelease, "MARKETD_SIMULATION_CRYPTO_RELEASE")
	setDuration(&cfg.Simulation.Handshake, "MARKETD_SIMULATION_HANDSHAKE")
	setDuration(&cfg.Simulation.ScanStep, "MARKETD_SIMULATION_SCAN_STEP")
	setInt(&cfg.Simulation.ScanIncrement, "MARKETD_SIMULATION_SCAN_INCREMENT")

	// ── Onboarding ──
	setStr(&cfg.Onboarding.DefaultCountry, "MARKETD_ONBOARDING_DEFAULT_COUNTRY")
	setBool(&cfg.Onboarding.EmailOwnerHeuristic, "MARKETD_ONBOARDING_EMAIL_OWNER_HEURISTIC")

	// ── Capture ──
	setStr(&cfg.Capture.Device, "MARKETD_CAPTURE_DEVICE")
	setStr(&cfg.Capture.FramePath, "MARKETD_CAPTURE_FRAME_PATH")

	// ── Notify ──
	setStr(&cfg.Notify.Storefront, "MARKETD_NOTIFY_STOREFRONT")
	setStr(&cfg.Notify.TelegramBotToken, "MARKETD_NOTIFY_TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETD_MODE")
	setStr(&cfg.LogLevel, "MARKETD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
