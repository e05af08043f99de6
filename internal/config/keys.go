package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "LINKEDINBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "linkedin.base_url", typ: kString, env: "LINKEDINBOT_LINKEDIN_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LinkedIn.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LinkedIn.BaseURL },
	},
	{
		key: "linkedin.client_id", typ: kString, env: "LINKEDINBOT_LINKEDIN_CLIENT_ID",
		apply:   func(cfg *Config, v any) { cfg.LinkedIn.ClientID = v.(string) },
		extract: func(cfg Config) any { return cfg.LinkedIn.ClientID },
	},
	{
		key: "linkedin.client_secret", typ: kString, env: "LINKEDINBOT_LINKEDIN_CLIENT_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LinkedIn.ClientSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.LinkedIn.ClientSecret },
	},
	{
		key: "linkedin.redirect_uri", typ: kString, env: "LINKEDINBOT_LINKEDIN_REDIRECT_URI",
		apply:   func(cfg *Config, v any) { cfg.LinkedIn.RedirectURI = v.(string) },
		extract: func(cfg Config) any { return cfg.LinkedIn.RedirectURI },
	},
	{
		key: "lmstudio.base_url", typ: kString, env: "LINKEDINBOT_LMSTUDIO_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LMStudio.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LMStudio.BaseURL },
	},
	{
		key: "lmstudio.model", typ: kString, env: "LINKEDINBOT_LMSTUDIO_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LMStudio.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LMStudio.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "LINKEDINBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "bot.mode", typ: kString, env: "LINKEDINBOT_BOT_MODE",
		apply:   func(cfg *Config, v any) { cfg.Bot.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.Mode },
	},
	{
		key: "bot.exclude_company", typ: kString, env: "LINKEDINBOT_BOT_EXCLUDE_COMPANY",
		apply:   func(cfg *Config, v any) { cfg.Bot.ExcludeCompany = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.ExcludeCompany },
	},
	{
		key: "bot.skills", typ: kString, env: "LINKEDINBOT_BOT_SKILLS",
		apply:   func(cfg *Config, v any) { cfg.Bot.Skills = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.Skills },
	},
	{
		key: "bot.max_applications_per_day", typ: kInt, env: "LINKEDINBOT_BOT_MAX_APPLICATIONS_PER_DAY",
		apply:   func(cfg *Config, v any) { cfg.Bot.MaxApplicationsPerDay = v.(int) },
		extract: func(cfg Config) any { return cfg.Bot.MaxApplicationsPerDay },
	},
	{
		key: "bot.max_messages_per_day", typ: kInt, env: "LINKEDINBOT_BOT_MAX_MESSAGES_PER_DAY",
		apply:   func(cfg *Config, v any) { cfg.Bot.MaxMessagesPerDay = v.(int) },
		extract: func(cfg Config) any { return cfg.Bot.MaxMessagesPerDay },
	},
	{
		key: "bot.min_score", typ: kFloat, env: "LINKEDINBOT_BOT_MIN_SCORE",
		apply:   func(cfg *Config, v any) { cfg.Bot.MinScore = v.(float64) },
		extract: func(cfg Config) any { return cfg.Bot.MinScore },
	},
	{
		key: "bot.max_attempts", typ: kInt, env: "LINKEDINBOT_BOT_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Bot.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Bot.MaxAttempts },
	},
	{
		key: "bot.retry_base_delay", typ: kString, env: "LINKEDINBOT_BOT_RETRY_BASE_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Bot.RetryBaseDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.RetryBaseDelay },
	},
	{
		key: "bot.rate_limit_cooldown", typ: kString, env: "LINKEDINBOT_BOT_RATE_LIMIT_COOLDOWN",
		apply:   func(cfg *Config, v any) { cfg.Bot.RateLimitCooldown = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.RateLimitCooldown },
	},
	{
		key: "bot.pacing_min", typ: kString, env: "LINKEDINBOT_BOT_PACING_MIN",
		apply:   func(cfg *Config, v any) { cfg.Bot.PacingMin = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.PacingMin },
	},
	{
		key: "bot.pacing_max", typ: kString, env: "LINKEDINBOT_BOT_PACING_MAX",
		apply:   func(cfg *Config, v any) { cfg.Bot.PacingMax = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.PacingMax },
	},
	{
		key: "bot.resume_path", typ: kString, env: "LINKEDINBOT_BOT_RESUME_PATH",
		apply:   func(cfg *Config, v any) { cfg.Bot.ResumePath = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.ResumePath },
	},
	{
		key: "bot.resume_id", typ: kString, env: "LINKEDINBOT_BOT_RESUME_ID",
		apply:   func(cfg *Config, v any) { cfg.Bot.ResumeID = v.(string) },
		extract: func(cfg Config) any { return cfg.Bot.ResumeID },
	},
	{
		key: "log.level", typ: kString, env: "LINKEDINBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
