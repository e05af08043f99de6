package session

import (
	"context"
	"fmt"
	"sync"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateActive          State = "active"
	StatePaused          State = "paused"
	StateCaptchaBlocked  State = "captcha_blocked"
	StateClosed          State = "closed"
)

// Machine guards the session state. Batch loops call Checkpoint between items;
// a paused machine blocks them until resumed, while captcha-blocked, closed
// and cancelled machines turn them away with the matching sentinel error.
type Machine struct {
	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	cancelled bool
}

// NewMachine returns a machine in the unauthenticated state.
func NewMachine() *Machine {
	m := &Machine{state: StateUnauthenticated}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Current returns the machine's state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) transition(from []State, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateClosed {
		return ErrSessionClosed
	}
	for _, s := range from {
		if m.state == s {
			m.state = to
			m.cond.Broadcast()
			return nil
		}
	}
	return fmt.Errorf("session: cannot move from %s to %s", m.state, to)
}

// BeginAuth marks the start of a login attempt.
func (m *Machine) BeginAuth() error {
	return m.transition([]State{StateUnauthenticated, StateAuthenticating}, StateAuthenticating)
}

// FinishAuth records the outcome of a login attempt: active on success, back
// to unauthenticated on failure.
func (m *Machine) FinishAuth(ok bool) error {
	if ok {
		return m.transition([]State{StateAuthenticating}, StateActive)
	}
	return m.transition([]State{StateAuthenticating}, StateUnauthenticated)
}

// Pause suspends batch processing at the next checkpoint.
func (m *Machine) Pause() error {
	return m.transition([]State{StateActive}, StatePaused)
}

// Resume lets a paused session continue.
func (m *Machine) Resume() error {
	return m.transition([]State{StatePaused}, StateActive)
}

// BlockCaptcha moves the session into the captcha-blocked state. Only manual
// resolution via ClearCaptcha releases it.
func (m *Machine) BlockCaptcha() error {
	return m.transition([]State{StateActive, StatePaused}, StateCaptchaBlocked)
}

// ClearCaptcha confirms the challenge was resolved by hand.
func (m *Machine) ClearCaptcha() error {
	return m.transition([]State{StateCaptchaBlocked}, StateActive)
}

// Close ends the session permanently. All states may close.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateClosed
	m.cond.Broadcast()
}

// Cancel aborts the batch in flight at its next checkpoint without changing
// the session state.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = true
	m.cond.Broadcast()
}

// ResetCancel clears the cancel flag; called when a new batch starts.
func (m *Machine) ResetCancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = false
}

// Checkpoint is called by batch loops before each item. It returns nil when
// the session is active, blocks while paused, and otherwise reports why the
// batch cannot continue. Context cancellation unblocks a paused wait.
func (m *Machine) Checkpoint(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.cancelled {
			return ErrBatchCancelled
		}
		switch m.state {
		case StateActive:
			return nil
		case StateClosed:
			return ErrSessionClosed
		case StateCaptchaBlocked:
			return ErrCaptchaBlocked
		case StateUnauthenticated, StateAuthenticating:
			return ErrNotAuthenticated
		case StatePaused:
			m.cond.Wait()
		}
	}
}
