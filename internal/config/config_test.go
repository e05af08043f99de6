package config

import (
	"fmt"
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	data map[string]any
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
	return i, true, nil
}

func (b *memBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *memBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return nil
}
func (b *memBackend) Delete(key string) error { delete(b.data, key); return nil }

type mockKeychain struct {
	values map[string]string
}

func (m mockKeychain) Get(service, account string) (string, error) {
	v, ok := m.values[account]
	if !ok {
		return "", fmt.Errorf("not found")
	}
	return v, nil
}

func (m mockKeychain) Set(service, account, value string) error {
	m.values[account] = value
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(&memBackend{data: map[string]any{}}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d, want 4200", cfg.Server.Port)
	}
	if cfg.LinkedIn.BaseURL != "https://api.linkedin.com" {
		t.Errorf("LinkedIn.BaseURL = %q", cfg.LinkedIn.BaseURL)
	}
	if cfg.LMStudio.BaseURL != "http://localhost:1234/v1" {
		t.Errorf("LMStudio.BaseURL = %q", cfg.LMStudio.BaseURL)
	}
	if cfg.Bot.Mode != "observation" {
		t.Errorf("Bot.Mode = %q, want observation (safe default)", cfg.Bot.Mode)
	}
	if cfg.Bot.PacingMin != "2s" || cfg.Bot.PacingMax != "6s" {
		t.Errorf("pacing defaults = %q..%q", cfg.Bot.PacingMin, cfg.Bot.PacingMax)
	}
}

func TestBackendOverrides(t *testing.T) {
	b := &memBackend{data: map[string]any{
		"server.port":          5000,
		"bot.mode":             "full-automatic",
		"bot.skills":           "go,sql,docker",
		"bot.min_score":        "40.5",
		"bot.max_messages_per_day": 7,
	}}
	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Bot.Mode != "full-automatic" {
		t.Errorf("Bot.Mode = %q", cfg.Bot.Mode)
	}
	if cfg.Bot.Skills != "go,sql,docker" {
		t.Errorf("Bot.Skills = %q", cfg.Bot.Skills)
	}
	if cfg.Bot.MinScore != 40.5 {
		t.Errorf("Bot.MinScore = %v", cfg.Bot.MinScore)
	}
	if cfg.Bot.MaxMessagesPerDay != 7 {
		t.Errorf("Bot.MaxMessagesPerDay = %d", cfg.Bot.MaxMessagesPerDay)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := &memBackend{data: map[string]any{"bot.mode": "observation"}}
	t.Setenv("LINKEDINBOT_BOT_MODE", "semi-automatic")

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bot.Mode != "semi-automatic" {
		t.Errorf("Bot.Mode = %q, want env override", cfg.Bot.Mode)
	}
}

func TestInvalidModeRejected(t *testing.T) {
	b := &memBackend{data: map[string]any{"bot.mode": "turbo"}}
	if _, err := loadWith(b, mockKeychain{}); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func TestInvalidDurationRejected(t *testing.T) {
	b := &memBackend{data: map[string]any{"bot.pacing_min": "soon"}}
	if _, err := loadWith(b, mockKeychain{}); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestClientSecretFromKeychain(t *testing.T) {
	kc := mockKeychain{values: map[string]string{"linkedin_client_secret": "shh"}}
	cfg, err := loadWith(&memBackend{data: map[string]any{}}, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LinkedIn.ClientSecret != "shh" {
		t.Errorf("ClientSecret = %q, want keychain value", cfg.LinkedIn.ClientSecret)
	}
}

func TestGetAPIToken_GeneratesAndPersists(t *testing.T) {
	kc := mockKeychain{values: map[string]string{}}

	tok, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(tok))
	}

	again, err := GetAPIToken(kc)
	if err != nil {
		t.Fatalf("GetAPIToken second call: %v", err)
	}
	if again != tok {
		t.Error("second call generated a different token")
	}
}
