package session

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"observation", ModeObservation},
		{"Observation", ModeObservation},
		{"semi-automatic", ModeSemiAutomatic},
		{"semi_automatico", ModeSemiAutomatic},
		{"SEMI_AUTOMATICO", ModeSemiAutomatic},
		{"full-automatic", ModeFullAutomatic},
		{"automatico", ModeFullAutomatic},
		{"  full  ", ModeFullAutomatic},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Errorf("ParseMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMode_Unknown(t *testing.T) {
	if _, err := ParseMode("turbo"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("got %v, want ErrUnknownMode", err)
	}
}

func TestLimitsFor_ObservationIsZero(t *testing.T) {
	limits := LimitsFor(ModeObservation)
	if limits.MaxApplicationsPerDay != 0 || limits.MaxMessagesPerDay != 0 {
		t.Errorf("observation limits = %+v, want all zero", limits)
	}
}

func TestModeApply_Overrides(t *testing.T) {
	limits := ModeFullAutomatic.Apply(Limits{MaxMessagesPerDay: 3})
	if limits.MaxMessagesPerDay != 3 {
		t.Errorf("MaxMessagesPerDay = %d, want 3", limits.MaxMessagesPerDay)
	}
	if limits.MaxApplicationsPerDay != LimitsFor(ModeFullAutomatic).MaxApplicationsPerDay {
		t.Errorf("applications default not preserved: %+v", limits)
	}
}

func TestModeApply_ObservationIgnoresOverrides(t *testing.T) {
	limits := ModeObservation.Apply(Limits{MaxApplicationsPerDay: 99, MaxMessagesPerDay: 99})
	if limits.MaxApplicationsPerDay != 0 || limits.MaxMessagesPerDay != 0 {
		t.Errorf("observation accepted overrides: %+v", limits)
	}
}
