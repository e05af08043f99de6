package session

import (
	"context"
	"errors"
	"time"
)

// Status classifies how an executed action ended.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailure     Status = "failure"
	StatusRateLimited Status = "rate_limited"
	StatusCaptcha     Status = "captcha"
)

// Outcome reports the result of running an action through the executor.
type Outcome struct {
	Status   Status
	Attempts int
	Err      error
}

// Executor runs actions with bounded retries. Ordinary failures back off
// exponentially; a rate-limit signal earns one cooldown retry before the
// batch is told to stop; a security challenge aborts immediately.
type Executor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Cooldown    time.Duration

	// sleep is replaced in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor builds an executor with the given retry policy. Non-positive
// arguments fall back to three attempts, one second base delay and a one
// minute rate-limit cooldown.
func NewExecutor(maxAttempts int, baseDelay, cooldown time.Duration) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Executor{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Cooldown:    cooldown,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs fn until it succeeds, exhausts its attempts, or hits a signal
// that ends the batch. A rate limit is retried once after the cooldown; a
// second consecutive rate limit surfaces as StatusRateLimited. Attempts
// counts the failed ordinary attempts; delays between them double each time.
func (e *Executor) Execute(ctx context.Context, fn func(ctx context.Context) error) Outcome {
	attempt := 0
	rateLimitRetried := false

	for {
		err := fn(ctx)
		if err == nil {
			return Outcome{Status: StatusSuccess, Attempts: attempt}
		}

		switch {
		case errors.Is(err, ErrChallenge):
			return Outcome{Status: StatusCaptcha, Attempts: attempt, Err: err}

		case errors.Is(err, ErrRateLimited):
			if rateLimitRetried {
				return Outcome{Status: StatusRateLimited, Attempts: attempt, Err: err}
			}
			rateLimitRetried = true
			if serr := e.sleep(ctx, e.Cooldown); serr != nil {
				return Outcome{Status: StatusFailure, Attempts: attempt, Err: serr}
			}

		default:
			rateLimitRetried = false
			attempt++
			if attempt >= e.MaxAttempts {
				return Outcome{Status: StatusFailure, Attempts: attempt, Err: err}
			}
			delay := e.BaseDelay << (attempt - 1)
			if serr := e.sleep(ctx, delay); serr != nil {
				return Outcome{Status: StatusFailure, Attempts: attempt, Err: serr}
			}
		}
	}
}
