// Package api implements the daemon's loopback HTTP surface: session control,
// batch operations, audit history, and a read-only MCP server.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/jonypilatti/linkedinbot/internal/profile"
	"github.com/jonypilatti/linkedinbot/internal/session"
	"github.com/jonypilatti/linkedinbot/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the handler's collaborators.
type Deps struct {
	Controller *session.Controller
	Store      *storage.Store
	Profile    *profile.Manager
	APIToken   string
	Version    string
}

// NewHandler builds the daemon's HTTP router. Everything except /health
// requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	h := &handler{
		deps:    deps,
		batches: &batchRunner{},
	}

	r := chi.NewRouter()
	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.APIToken))

		r.Post("/login", h.handleLogin)
		r.Get("/session", h.handleSessionStatus)
		r.Post("/session/pause", h.handlePause)
		r.Post("/session/resume", h.handleResume)
		r.Post("/session/captcha/clear", h.handleClearCaptcha)
		r.Post("/session/cancel", h.handleCancelBatch)
		r.Post("/session/close", h.handleClose)

		r.Post("/batches/contact-recruiters", h.handleContactRecruiters)
		r.Post("/batches/apply", h.handleApplyJobs)
		r.Get("/batches/last", h.handleLastBatch)

		r.Get("/history", h.handleHistory)
		r.Get("/history/export", h.handleHistoryExport)

		r.Get("/profile", h.handleGetProfile)
		r.Put("/profile", h.handleSetProfile)

		r.Post("/compatibility", h.handleCompatibility)
	})

	return r
}

type handler struct {
	deps    Deps
	batches *batchRunner
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.deps.Version,
	})
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	if err := h.deps.Controller.Authenticate(r.Context(), req.Code); err != nil {
		sessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Controller.Status())
}

func (h *handler) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.deps.Controller.Status())
}

func (h *handler) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Controller.Pause(); err != nil {
		sessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Controller.Status())
}

func (h *handler) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Controller.Resume(); err != nil {
		sessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Controller.Status())
}

func (h *handler) handleClearCaptcha(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Controller.ClearCaptcha(); err != nil {
		sessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Controller.Status())
}

func (h *handler) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	h.deps.Controller.CancelBatch()
	respondJSON(w, http.StatusOK, h.deps.Controller.Status())
}

func (h *handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.deps.Controller.Close()
	respondJSON(w, http.StatusOK, h.deps.Controller.Status())
}

func (h *handler) handleContactRecruiters(w http.ResponseWriter, r *http.Request) {
	started := h.batches.start("contact_recruiters", func(ctx context.Context) (session.Result, error) {
		return h.deps.Controller.ContactRecruiters(ctx)
	})
	if !started {
		sessionError(w, session.ErrSessionBusy)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "kind": "contact_recruiters"})
}

func (h *handler) handleApplyJobs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req struct {
		Keywords      []string `json:"keywords"`
		Location      string   `json:"location"`
		MaxJobs       int      `json:"max_jobs"`
		EasyApplyOnly bool     `json:"easy_apply_only"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if len(req.Keywords) == 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "keywords is required")
		return
	}
	if req.MaxJobs < 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "max_jobs must not be negative")
		return
	}

	query := session.JobQuery{
		Keywords:      req.Keywords,
		Location:      req.Location,
		MaxJobs:       req.MaxJobs,
		EasyApplyOnly: req.EasyApplyOnly,
	}
	started := h.batches.start("apply_jobs", func(ctx context.Context) (session.Result, error) {
		return h.deps.Controller.SearchAndApplyJobs(ctx, query)
	})
	if !started {
		sessionError(w, session.ErrSessionBusy)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started", "kind": "apply_jobs"})
}

func (h *handler) handleLastBatch(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.batches.snapshot())
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit %q", raw)
			return
		}
		limit = n
	}

	var kind storage.ActionKind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind = storage.ActionKind(raw)
		if !kind.Valid() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown action kind %q", raw)
			return
		}
	}

	records, err := h.deps.Store.ListRecentActions(limit, kind)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "listing history: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"actions": records})
}

func (h *handler) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
	if err := h.deps.Store.ExportActionsCSV(w); err != nil {
		// Headers are out; all we can do is log via the error path.
		httpError(w, http.StatusInternalServerError, "api_error", "exporting history: %v", err)
	}
}

func (h *handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profile.Get()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *handler) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if req.Key == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "key is required")
		return
	}

	// Strings are stored bare; lists and objects keep their JSON form.
	if err := h.deps.Profile.SetField(req.Key, req.Value); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "setting profile field: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{
		"score": h.deps.Controller.Score(req.Description),
	})
}

// batchRunner runs one batch at a time on a background goroutine and keeps
// the most recent outcome for GET /batches/last. The controller holds its own
// single-flight guard; this layer exists so the HTTP surface can answer 409
// synchronously and report results after the fact.
type batchRunner struct {
	mu      sync.Mutex
	running bool
	kind    string
	last    *session.Result
	lastErr string
}

type batchSnapshot struct {
	Running bool            `json:"running"`
	Kind    string          `json:"kind,omitempty"`
	Last    *session.Result `json:"last,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (b *batchRunner) start(kind string, fn func(ctx context.Context) (session.Result, error)) bool {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return false
	}
	b.running = true
	b.kind = kind
	b.mu.Unlock()

	go func() {
		res, err := fn(context.Background())

		b.mu.Lock()
		defer b.mu.Unlock()
		b.running = false
		b.last = &res
		b.lastErr = ""
		if err != nil {
			b.lastErr = err.Error()
		}
	}()
	return true
}

func (b *batchRunner) snapshot() batchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return batchSnapshot{
		Running: b.running,
		Kind:    b.kind,
		Last:    b.last,
		Error:   b.lastErr,
	}
}
