package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonypilatti/linkedinbot/internal/auth"
	"github.com/jonypilatti/linkedinbot/internal/message"
	"github.com/jonypilatti/linkedinbot/internal/storage"
)

// Prompts handed to the generator when drafting personalized text.
const (
	recruiterNotePrompt = "Write a brief, friendly note (two sentences at most) to {recruiter_name}, a recruiter at {company}, explaining why I would be a strong candidate. My professional headline: {user_headline}."
	coverNotePrompt     = "Write one short paragraph explaining why I am a good fit for the {job_title} position at {company}. My relevant skills: {skills}."
)

// Network is the remote-service transport the controller drives.
type Network interface {
	UseToken(token string)
	ExchangeCode(ctx context.Context, code string) (auth.Credential, error)
	CurrentProfile(ctx context.Context) (Profile, error)
	Connections(ctx context.Context) ([]Contact, error)
	SearchJobs(ctx context.Context, query JobQuery) ([]JobPosting, error)
	JobDescription(ctx context.Context, jobID string) (string, error)
	SendMessage(ctx context.Context, contactID, text string) error
	ApplyToJob(ctx context.Context, jobID, resumeID, coverNote string) error
}

// Generator drafts personalized text. A nil generator is allowed; messages
// then go out with the personalization placeholder left blank.
type Generator interface {
	Generate(ctx context.Context, promptTemplate string, values map[string]string) (string, error)
}

// Audit is the append-only action log.
type Audit interface {
	AppendAction(rec storage.ActionRecord) error
	CountSuccessfulSince(kind storage.ActionKind, since time.Time) (int, error)
}

// TokenStore persists the session credential between runs.
type TokenStore interface {
	Load() (auth.Credential, error)
	Save(cred auth.Credential) error
}

// Config tunes a Controller.
type Config struct {
	Mode              Mode
	Limits            Limits // positive fields override the mode defaults
	ExcludeCompany    string
	Skills            []string
	MinScore          float64
	RecruiterTemplate string
	CoverTemplate     string
	ResumeID          string

	MaxAttempts int
	BaseDelay   time.Duration
	Cooldown    time.Duration
	PacingMin   time.Duration
	PacingMax   time.Duration
}

// Result summarizes a finished batch.
type Result struct {
	Kind         string    `json:"kind"`
	Processed    int       `json:"processed"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
	QuotaReached bool      `json:"quota_reached"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Snapshot is the controller's externally visible state.
type Snapshot struct {
	State        State  `json:"state"`
	Mode         Mode   `json:"mode"`
	Profile      string `json:"profile,omitempty"`
	Applications int    `json:"applications_today"`
	Messages     int    `json:"messages_today"`
	Limits       Limits `json:"limits"`
}

// Controller owns the session: it authenticates, runs batches one at a time,
// enforces quotas and pacing, and writes every action to the audit log.
type Controller struct {
	cfg      Config
	machine  *Machine
	counters *Counters
	executor *Executor
	pacer    *Pacer

	network   Network
	generator Generator
	audit     Audit
	tokens    TokenStore
	logger    *slog.Logger

	// sem serializes batches; TryAcquire failing means one is running.
	sem     *semaphore.Weighted
	profile Profile
}

// NewController wires a controller and replays today's audit records into the
// quota counters so a restart cannot grant a fresh daily budget.
func NewController(cfg Config, network Network, generator Generator, audit Audit, tokens TokenStore, logger *slog.Logger) (*Controller, error) {
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		cfg:       cfg,
		machine:   NewMachine(),
		counters:  NewCounters(cfg.Mode.Apply(cfg.Limits)),
		executor:  NewExecutor(cfg.MaxAttempts, cfg.BaseDelay, cfg.Cooldown),
		pacer:     NewPacer(cfg.PacingMin, cfg.PacingMax),
		network:   network,
		generator: generator,
		audit:     audit,
		tokens:    tokens,
		logger:    logger,
		sem:       semaphore.NewWeighted(1),
	}

	since := c.counters.StartOfDay()
	apps, err := audit.CountSuccessfulSince(storage.ActionApply, since)
	if err != nil {
		return nil, fmt.Errorf("replaying application count: %w", err)
	}
	msgs, err := audit.CountSuccessfulSince(storage.ActionMessage, since)
	if err != nil {
		return nil, fmt.Errorf("replaying message count: %w", err)
	}
	c.counters.Seed(apps, msgs)
	return c, nil
}

// record appends one action to the audit log. Audit failures are logged and
// never interrupt the batch.
func (c *Controller) record(kind storage.ActionKind, success bool, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	rec := storage.ActionRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Kind:      kind,
		Details:   string(payload),
		Success:   success,
	}
	if err := c.audit.AppendAction(rec); err != nil {
		c.logger.Warn("audit append failed", "kind", kind, "error", err)
	}
}

// Authenticate logs the session in. An empty code reuses the stored
// credential; otherwise the code is exchanged and the new credential saved.
func (c *Controller) Authenticate(ctx context.Context, code string) error {
	if err := c.machine.BeginAuth(); err != nil {
		return err
	}

	cred, err := c.obtainCredential(ctx, code)
	if err != nil {
		if ferr := c.machine.FinishAuth(false); ferr != nil {
			return ferr
		}
		c.record(storage.ActionLogin, false, map[string]any{"error": err.Error()})
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	c.network.UseToken(cred.AccessToken)
	profile, err := c.network.CurrentProfile(ctx)
	if err != nil {
		if ferr := c.machine.FinishAuth(false); ferr != nil {
			return ferr
		}
		c.record(storage.ActionLogin, false, map[string]any{"error": err.Error()})
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	c.profile = profile

	if err := c.machine.FinishAuth(true); err != nil {
		return err
	}
	c.record(storage.ActionLogin, true, map[string]any{"profile": profile.DisplayName()})
	c.logger.Info("session authenticated", "profile", profile.DisplayName(), "mode", c.cfg.Mode)
	return nil
}

func (c *Controller) obtainCredential(ctx context.Context, code string) (auth.Credential, error) {
	if code == "" {
		cred, err := c.tokens.Load()
		if err != nil {
			return auth.Credential{}, err
		}
		return cred, nil
	}
	cred, err := c.network.ExchangeCode(ctx, code)
	if err != nil {
		return auth.Credential{}, err
	}
	if err := c.tokens.Save(cred); err != nil {
		c.logger.Warn("saving credential failed", "error", err)
	}
	return cred, nil
}

// ContactRecruiters finds recruiter connections and sends each a personalized
// outreach message, honoring quotas, pacing and the session state machine.
func (c *Controller) ContactRecruiters(ctx context.Context) (Result, error) {
	if !c.sem.TryAcquire(1) {
		return Result{}, ErrSessionBusy
	}
	defer c.sem.Release(1)
	c.machine.ResetCancel()

	res := Result{Kind: "contact_recruiters", StartedAt: time.Now()}
	defer func() { res.FinishedAt = time.Now() }()

	if err := c.machine.Checkpoint(ctx); err != nil {
		return res, err
	}
	if !c.counters.CanMessage() {
		c.record(storage.ActionError, false, map[string]any{"reason": "message quota exhausted"})
		return res, ErrQuotaExceeded
	}

	var contacts []Contact
	out := c.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		contacts, err = c.network.Connections(ctx)
		return err
	})
	if err := c.handleBatchSignal(out, storage.ActionSearch, map[string]any{"target": "connections"}); err != nil {
		return res, err
	}
	c.record(storage.ActionSearch, true, map[string]any{"target": "connections", "found": len(contacts)})

	recruiters := make([]Contact, 0, len(contacts))
	for _, ct := range contacts {
		if !IsRecruiter(ct) {
			continue
		}
		if c.cfg.ExcludeCompany != "" && strings.EqualFold(ct.Company, c.cfg.ExcludeCompany) {
			res.Skipped++
			continue
		}
		recruiters = append(recruiters, ct)
	}
	c.logger.Info("recruiters selected", "total", len(contacts), "recruiters", len(recruiters), "excluded", res.Skipped)

	for _, recruiter := range recruiters {
		if err := c.machine.Checkpoint(ctx); err != nil {
			return res, err
		}
		if !c.counters.CanMessage() {
			res.QuotaReached = true
			c.logger.Info("message quota reached, stopping batch", "sent", res.Succeeded)
			break
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return res, err
		}

		res.Processed++
		note := c.personalize(ctx, recruiterNotePrompt, map[string]string{
			"recruiter_name": recruiter.Name,
			"company":        recruiter.Company,
			"user_headline":  c.profile.Headline,
		})
		text := message.Render(c.cfg.RecruiterTemplate, message.DefaultRecruiterTemplate, message.RecruiterMessageContext{
			RecruiterName:    recruiter.Name,
			Company:          recruiter.Company,
			UserName:         c.profile.DisplayName(),
			PersonalizedNote: note,
		}.Values())

		details := map[string]any{"contact_id": recruiter.ID, "name": recruiter.Name, "company": recruiter.Company}
		out := c.executor.Execute(ctx, func(ctx context.Context) error {
			return c.network.SendMessage(ctx, recruiter.ID, text)
		})
		switch out.Status {
		case StatusSuccess:
			c.counters.RecordMessage()
			c.record(storage.ActionMessage, true, details)
			res.Succeeded++
		case StatusCaptcha:
			return res, c.captchaStop(storage.ActionMessage, details)
		case StatusRateLimited:
			return res, c.rateLimitStop(storage.ActionMessage, details)
		default:
			details["error"] = out.Err.Error()
			details["attempts"] = out.Attempts
			c.record(storage.ActionMessage, false, details)
			res.Failed++
		}
	}
	return res, nil
}

// SearchAndApplyJobs searches postings matching the query, scores each
// description against the query's keywords, and applies to those at or above
// the minimum score.
func (c *Controller) SearchAndApplyJobs(ctx context.Context, query JobQuery) (Result, error) {
	if !c.sem.TryAcquire(1) {
		return Result{}, ErrSessionBusy
	}
	defer c.sem.Release(1)
	c.machine.ResetCancel()

	res := Result{Kind: "apply_jobs", StartedAt: time.Now()}
	defer func() { res.FinishedAt = time.Now() }()

	if err := c.machine.Checkpoint(ctx); err != nil {
		return res, err
	}
	if !c.counters.CanApply() {
		c.record(storage.ActionError, false, map[string]any{"reason": "application quota exhausted"})
		return res, ErrQuotaExceeded
	}

	var jobs []JobPosting
	out := c.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		jobs, err = c.network.SearchJobs(ctx, query)
		return err
	})
	searchDetails := map[string]any{"keywords": query.Keywords, "location": query.Location}
	if err := c.handleBatchSignal(out, storage.ActionSearch, searchDetails); err != nil {
		return res, err
	}
	c.record(storage.ActionSearch, true, map[string]any{"keywords": query.Keywords, "location": query.Location, "found": len(jobs)})

	if query.EasyApplyOnly {
		filtered := jobs[:0]
		for _, job := range jobs {
			if job.EasyApply {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}
	if query.MaxJobs > 0 && len(jobs) > query.MaxJobs {
		jobs = jobs[:query.MaxJobs]
	}

	for _, job := range jobs {
		if err := c.machine.Checkpoint(ctx); err != nil {
			return res, err
		}
		if !c.counters.CanApply() {
			res.QuotaReached = true
			c.logger.Info("application quota reached, stopping batch", "applied", res.Succeeded)
			break
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return res, err
		}

		desc := job.Description
		if desc == "" {
			dout := c.executor.Execute(ctx, func(ctx context.Context) error {
				var err error
				desc, err = c.network.JobDescription(ctx, job.ID)
				return err
			})
			switch dout.Status {
			case StatusCaptcha:
				return res, c.captchaStop(storage.ActionSearch, map[string]any{"job_id": job.ID})
			case StatusRateLimited:
				return res, c.rateLimitStop(storage.ActionSearch, map[string]any{"job_id": job.ID})
			case StatusFailure:
				c.logger.Warn("fetching job description failed", "job_id", job.ID, "error", dout.Err)
				desc = ""
			}
		}

		score := CompatibilityScore(desc, query.Keywords)
		if score < c.cfg.MinScore {
			res.Skipped++
			continue
		}

		res.Processed++
		note := c.personalize(ctx, coverNotePrompt, map[string]string{
			"job_title": job.Title,
			"company":   job.Company,
			"skills":    strings.Join(c.cfg.Skills, ", "),
		})
		cover := message.Render(c.cfg.CoverTemplate, message.DefaultCoverNoteTemplate, message.CoverNoteContext{
			Company:          job.Company,
			JobTitle:         job.Title,
			UserName:         c.profile.DisplayName(),
			PersonalizedNote: note,
		}.Values())

		details := map[string]any{"job_id": job.ID, "title": job.Title, "company": job.Company, "score": score}
		out := c.executor.Execute(ctx, func(ctx context.Context) error {
			return c.network.ApplyToJob(ctx, job.ID, c.cfg.ResumeID, cover)
		})
		switch out.Status {
		case StatusSuccess:
			c.counters.RecordApplication()
			c.record(storage.ActionApply, true, details)
			res.Succeeded++
		case StatusCaptcha:
			return res, c.captchaStop(storage.ActionApply, details)
		case StatusRateLimited:
			return res, c.rateLimitStop(storage.ActionApply, details)
		default:
			details["error"] = out.Err.Error()
			details["attempts"] = out.Attempts
			c.record(storage.ActionApply, false, details)
			res.Failed++
		}
	}
	return res, nil
}

// personalize asks the generator for a note. Generation failures degrade to
// an empty note rather than failing the batch.
func (c *Controller) personalize(ctx context.Context, prompt string, values map[string]string) string {
	if c.generator == nil {
		return ""
	}
	note, err := c.generator.Generate(ctx, prompt, values)
	if err != nil {
		c.logger.Warn("note generation failed, sending without personalization", "error", err)
		return ""
	}
	return strings.TrimSpace(note)
}

// handleBatchSignal turns a non-success fetch outcome into the batch error.
func (c *Controller) handleBatchSignal(out Outcome, kind storage.ActionKind, details map[string]any) error {
	switch out.Status {
	case StatusSuccess:
		return nil
	case StatusCaptcha:
		return c.captchaStop(kind, details)
	case StatusRateLimited:
		return c.rateLimitStop(kind, details)
	default:
		details["error"] = out.Err.Error()
		c.record(kind, false, details)
		return fmt.Errorf("fetching batch input: %w", out.Err)
	}
}

func (c *Controller) captchaStop(kind storage.ActionKind, details map[string]any) error {
	details["error"] = ErrChallenge.Error()
	c.record(kind, false, details)
	c.record(storage.ActionCaptcha, false, map[string]any{"reason": "security challenge during batch"})
	if err := c.machine.BlockCaptcha(); err != nil {
		c.logger.Warn("captcha transition failed", "error", err)
	}
	c.logger.Warn("batch stopped by security challenge")
	return ErrCaptchaBlocked
}

func (c *Controller) rateLimitStop(kind storage.ActionKind, details map[string]any) error {
	details["error"] = ErrRateLimited.Error()
	c.record(kind, false, details)
	c.record(storage.ActionError, false, map[string]any{"reason": "rate limited after cooldown retry"})
	c.logger.Warn("batch stopped by rate limiting")
	return ErrRateLimited
}

// Pause suspends batch processing at the next checkpoint.
func (c *Controller) Pause() error {
	if err := c.machine.Pause(); err != nil {
		return err
	}
	c.record(storage.ActionPause, true, nil)
	return nil
}

// Resume continues a paused session.
func (c *Controller) Resume() error {
	if err := c.machine.Resume(); err != nil {
		return err
	}
	c.record(storage.ActionResume, true, nil)
	return nil
}

// ClearCaptcha confirms a manual challenge resolution and reactivates the
// session.
func (c *Controller) ClearCaptcha() error {
	if err := c.machine.ClearCaptcha(); err != nil {
		return err
	}
	c.record(storage.ActionCaptcha, true, map[string]any{"resolution": "manually cleared"})
	return nil
}

// CancelBatch aborts the running batch at its next checkpoint.
func (c *Controller) CancelBatch() {
	c.machine.Cancel()
}

// Close ends the session. Further operations return ErrSessionClosed.
func (c *Controller) Close() {
	c.machine.Close()
}

// Status reports the session's current state and quota usage.
func (c *Controller) Status() Snapshot {
	apps, msgs, limits := c.counters.Snapshot()
	return Snapshot{
		State:        c.machine.Current(),
		Mode:         c.cfg.Mode,
		Profile:      c.profile.DisplayName(),
		Applications: apps,
		Messages:     msgs,
		Limits:       limits,
	}
}

// Score exposes compatibility scoring for read-only inspection (the API's
// job_compatibility tool).
func (c *Controller) Score(description string) float64 {
	return CompatibilityScore(description, c.cfg.Skills)
}

// IsAuthenticated reports whether the session has completed login.
func (c *Controller) IsAuthenticated() bool {
	switch c.machine.Current() {
	case StateActive, StatePaused, StateCaptchaBlocked:
		return true
	}
	return false
}
