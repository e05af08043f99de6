package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func activeMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine()
	if err := m.BeginAuth(); err != nil {
		t.Fatalf("BeginAuth: %v", err)
	}
	if err := m.FinishAuth(true); err != nil {
		t.Fatalf("FinishAuth: %v", err)
	}
	return m
}

func TestMachine_AuthLifecycle(t *testing.T) {
	m := NewMachine()
	if got := m.Current(); got != StateUnauthenticated {
		t.Fatalf("initial state = %s", got)
	}
	if err := m.BeginAuth(); err != nil {
		t.Fatalf("BeginAuth: %v", err)
	}
	if err := m.FinishAuth(false); err != nil {
		t.Fatalf("FinishAuth(false): %v", err)
	}
	if got := m.Current(); got != StateUnauthenticated {
		t.Errorf("state after failed auth = %s, want unauthenticated", got)
	}
}

func TestMachine_CheckpointRequiresAuth(t *testing.T) {
	m := NewMachine()
	if err := m.Checkpoint(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("got %v, want ErrNotAuthenticated", err)
	}
}

func TestMachine_PauseBlocksUntilResume(t *testing.T) {
	m := activeMachine(t)
	if err := m.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Checkpoint(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("Checkpoint returned %v while paused", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := m.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Checkpoint after resume: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Checkpoint did not return after Resume")
	}
}

func TestMachine_PausedCheckpointUnblocksOnContextCancel(t *testing.T) {
	m := activeMachine(t)
	if err := m.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Checkpoint(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Checkpoint did not return after context cancel")
	}
}

func TestMachine_CaptchaBlocksUntilCleared(t *testing.T) {
	m := activeMachine(t)
	if err := m.BlockCaptcha(); err != nil {
		t.Fatalf("BlockCaptcha: %v", err)
	}
	if err := m.Checkpoint(context.Background()); !errors.Is(err, ErrCaptchaBlocked) {
		t.Errorf("got %v, want ErrCaptchaBlocked", err)
	}
	// Resume must not release a captcha block.
	if err := m.Resume(); err == nil {
		t.Error("Resume from captcha-blocked should fail")
	}
	if err := m.ClearCaptcha(); err != nil {
		t.Fatalf("ClearCaptcha: %v", err)
	}
	if err := m.Checkpoint(context.Background()); err != nil {
		t.Errorf("Checkpoint after clear: %v", err)
	}
}

func TestMachine_CloseIsTerminal(t *testing.T) {
	m := activeMachine(t)
	m.Close()
	if err := m.Checkpoint(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("got %v, want ErrSessionClosed", err)
	}
	if err := m.Pause(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Pause after close: got %v, want ErrSessionClosed", err)
	}
	if err := m.BeginAuth(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("BeginAuth after close: got %v, want ErrSessionClosed", err)
	}
}

func TestMachine_CancelAbortsCheckpoint(t *testing.T) {
	m := activeMachine(t)
	m.Cancel()
	if err := m.Checkpoint(context.Background()); !errors.Is(err, ErrBatchCancelled) {
		t.Errorf("got %v, want ErrBatchCancelled", err)
	}
	m.ResetCancel()
	if err := m.Checkpoint(context.Background()); err != nil {
		t.Errorf("Checkpoint after ResetCancel: %v", err)
	}
}

func TestMachine_CancelUnblocksPausedCheckpoint(t *testing.T) {
	m := activeMachine(t)
	if err := m.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Checkpoint(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	m.Cancel()
	select {
	case err := <-done:
		if !errors.Is(err, ErrBatchCancelled) {
			t.Errorf("got %v, want ErrBatchCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Checkpoint did not return after Cancel")
	}
}
