package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonypilatti/linkedinbot/internal/session"
)

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// sessionError maps session sentinel errors onto HTTP status codes and the
// API error taxonomy.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		httpError(w, http.StatusUnauthorized, "session_error", "%v", err)
	case errors.Is(err, session.ErrAuthenticationFailed):
		httpError(w, http.StatusUnauthorized, "authentication_error", "%v", err)
	case errors.Is(err, session.ErrSessionBusy):
		httpError(w, http.StatusConflict, "session_error", "%v", err)
	case errors.Is(err, session.ErrQuotaExceeded):
		httpError(w, http.StatusTooManyRequests, "quota_error", "%v", err)
	case errors.Is(err, session.ErrRateLimited):
		httpError(w, http.StatusTooManyRequests, "rate_limit_error", "%v", err)
	case errors.Is(err, session.ErrCaptchaBlocked):
		httpError(w, http.StatusLocked, "captcha_error", "%v", err)
	case errors.Is(err, session.ErrSessionClosed):
		httpError(w, http.StatusGone, "session_error", "%v", err)
	case errors.Is(err, session.ErrUnknownMode):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
