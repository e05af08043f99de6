package session

import "errors"

var (
	// ErrNotAuthenticated is returned by operations that require a logged-in
	// session when no authentication has completed.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrAuthenticationFailed is returned when a login attempt is rejected.
	ErrAuthenticationFailed = errors.New("session: authentication failed")

	// ErrSessionClosed is returned once Close has been called; a closed
	// session accepts no further operations.
	ErrSessionClosed = errors.New("session: closed")

	// ErrSessionBusy is returned when a batch operation is requested while
	// another batch is still running.
	ErrSessionBusy = errors.New("session: batch already in progress")

	// ErrQuotaExceeded is returned when a batch is requested but the daily
	// quota for its action kind is already exhausted.
	ErrQuotaExceeded = errors.New("session: daily quota exceeded")

	// ErrCaptchaBlocked is returned while the session is held in the
	// CAPTCHA-blocked state awaiting manual resolution.
	ErrCaptchaBlocked = errors.New("session: blocked on captcha challenge")

	// ErrChallenge signals that the remote service answered with a security
	// challenge page instead of a normal response.
	ErrChallenge = errors.New("linkedin: security challenge presented")

	// ErrRateLimited signals that the remote service is throttling requests.
	ErrRateLimited = errors.New("linkedin: rate limited")

	// ErrUnknownMode is returned when a mode string cannot be parsed.
	ErrUnknownMode = errors.New("session: unknown automation mode")

	// ErrBatchCancelled is returned when a running batch is cancelled
	// between items.
	ErrBatchCancelled = errors.New("session: batch cancelled")
)
