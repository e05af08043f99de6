package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ActionKind classifies an entry in the audit trail.
type ActionKind string

const (
	ActionLogin   ActionKind = "login"
	ActionSearch  ActionKind = "search"
	ActionApply   ActionKind = "apply"
	ActionMessage ActionKind = "message"
	ActionPause   ActionKind = "pause"
	ActionResume  ActionKind = "resume"
	ActionCaptcha ActionKind = "captcha"
	ActionError   ActionKind = "error"
)

// Valid reports whether k is one of the known action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionLogin, ActionSearch, ActionApply, ActionMessage,
		ActionPause, ActionResume, ActionCaptcha, ActionError:
		return true
	}
	return false
}

// ActionRecord is one immutable entry in the audit trail: a single attempted
// action and its outcome. Records are only ever appended, never updated or
// deleted, so daily counters can be recomputed by replaying them.
type ActionRecord struct {
	ID        string
	CreatedAt time.Time
	Kind      ActionKind
	Details   string // JSON payload describing the action
	Success   bool
}
