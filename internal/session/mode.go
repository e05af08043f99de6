package session

import (
	"fmt"
	"strings"
)

// Mode selects how much the session is allowed to do on its own.
type Mode string

const (
	// ModeObservation performs searches and filtering only; no messages are
	// sent and no applications are submitted.
	ModeObservation Mode = "observation"
	// ModeSemiAutomatic drafts messages and applications but holds them for
	// confirmation, under reduced daily quotas.
	ModeSemiAutomatic Mode = "semi-automatic"
	// ModeFullAutomatic sends and applies without confirmation, under the
	// full daily quotas.
	ModeFullAutomatic Mode = "full-automatic"
)

// Limits are the per-day action quotas granted by a mode. A zero limit means
// the action is not permitted at all.
type Limits struct {
	MaxApplicationsPerDay int
	MaxMessagesPerDay     int
}

// LimitsFor returns the default quotas for a mode.
func LimitsFor(m Mode) Limits {
	switch m {
	case ModeSemiAutomatic:
		return Limits{MaxApplicationsPerDay: 5, MaxMessagesPerDay: 10}
	case ModeFullAutomatic:
		return Limits{MaxApplicationsPerDay: 10, MaxMessagesPerDay: 25}
	default:
		return Limits{}
	}
}

// ParseMode normalizes a user-supplied mode string. Hyphen and underscore
// spellings are accepted, as are the Spanish names the original interface
// used.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch norm {
	case "observation", "observacion", "observación":
		return ModeObservation, nil
	case "semi-automatic", "semi-automatico", "semi-automático", "semiautomatic":
		return ModeSemiAutomatic, nil
	case "full-automatic", "automatico", "automático", "automatic", "full":
		return ModeFullAutomatic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeObservation, ModeSemiAutomatic, ModeFullAutomatic:
		return true
	}
	return false
}

// Apply overlays positive overrides on the mode's default quotas.
// Observation mode ignores overrides; its quotas are always zero.
func (m Mode) Apply(overrides Limits) Limits {
	limits := LimitsFor(m)
	if m == ModeObservation {
		return limits
	}
	if overrides.MaxApplicationsPerDay > 0 {
		limits.MaxApplicationsPerDay = overrides.MaxApplicationsPerDay
	}
	if overrides.MaxMessagesPerDay > 0 {
		limits.MaxMessagesPerDay = overrides.MaxMessagesPerDay
	}
	return limits
}
