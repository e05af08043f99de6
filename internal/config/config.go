package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig
	LinkedIn LinkedInConfig
	LMStudio LMStudioConfig
	Storage  StorageConfig
	Bot      BotConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type LinkedInConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type LMStudioConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

// BotConfig tunes the automation session. Durations are stored as strings
// ("2s", "1m") and parsed at wiring time.
type BotConfig struct {
	Mode                  string
	ExcludeCompany        string
	Skills                string // comma-separated
	MaxApplicationsPerDay int
	MaxMessagesPerDay     int
	MinScore              float64
	MaxAttempts           int
	RetryBaseDelay        string
	RateLimitCooldown     string
	PacingMin             string
	PacingMax             string
	ResumePath            string
	ResumeID              string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		LinkedIn: LinkedInConfig{
			BaseURL:     "https://api.linkedin.com",
			RedirectURI: "http://localhost:4200/callback",
		},
		LMStudio: LMStudioConfig{
			BaseURL: "http://localhost:1234/v1",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Bot: BotConfig{
			Mode:              "observation",
			MaxAttempts:       3,
			RetryBaseDelay:    "1s",
			RateLimitCooldown: "60s",
			PacingMin:         "2s",
			PacingMax:         "6s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/linkedinbot/config.json, then applies LINKEDINBOT_*
// environment variable overrides. Secrets (the LinkedIn client secret) come
// from the environment or the secrets store, never from the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend(), NewKeychain())
}

func loadWith(b ConfigBackend, kc Keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.LinkedIn.ClientSecret == "" {
		if v, err := kc.Get(serviceName, "linkedin_client_secret"); err == nil && v != "" {
			cfg.LinkedIn.ClientSecret = v
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Bot.Mode {
	case "observation", "semi-automatic", "full-automatic":
	default:
		return fmt.Errorf("invalid bot.mode %q (want observation, semi-automatic or full-automatic)", cfg.Bot.Mode)
	}
	for _, d := range []struct{ key, val string }{
		{"bot.retry_base_delay", cfg.Bot.RetryBaseDelay},
		{"bot.rate_limit_cooldown", cfg.Bot.RateLimitCooldown},
		{"bot.pacing_min", cfg.Bot.PacingMin},
		{"bot.pacing_max", cfg.Bot.PacingMax},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", d.key, err)
		}
	}
	return nil
}

// Duration parses a duration field that validate has already checked,
// falling back to def on a bad value.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
