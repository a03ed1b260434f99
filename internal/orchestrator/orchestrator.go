// Package orchestrator owns the login-job lifecycle: it schedules the
// blocking, human-paced browser session off the request path, persists
// every state transition, runs the post-session validity check and
// promotes validated credentials into the accounts registry.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/kleinvault/kleinvault/internal/browser"
	"github.com/kleinvault/kleinvault/internal/errors"
	"github.com/kleinvault/kleinvault/internal/logging"
	"github.com/kleinvault/kleinvault/internal/metrics"
	"github.com/kleinvault/kleinvault/internal/models"
	"github.com/kleinvault/kleinvault/internal/notify"
	"github.com/kleinvault/kleinvault/internal/profile"
	"github.com/kleinvault/kleinvault/internal/store"
)

// Config holds orchestrator configuration.
type Config struct {
	// LoginURL is the fixed page every session navigates to.
	LoginURL string
	// LoginMarker is the URL token identifying the login page.
	LoginMarker string
	// DefaultDevice is used when a submission names no device.
	DefaultDevice string
	// HeadlessTimeout bounds the validation round-trip.
	HeadlessTimeout time.Duration
}

// Orchestrator runs one worker goroutine per submitted job. Jobs are
// independent; the store is the only shared resource and every access
// to it is one short transaction.
type Orchestrator struct {
	store    store.Store
	driver   browser.Driver
	profiles *profile.Allocator
	cfg      Config
	logger   *logging.Logger
	metrics  *metrics.Metrics
	notifier notify.Notifier

	wg sync.WaitGroup
	// sessionCtx is the parent of every browser session. Cancelling it
	// force-closes open windows during shutdown.
	sessionCtx    context.Context
	cancelSession context.CancelFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithNotifier sets the operator notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// New creates an orchestrator.
func New(s store.Store, d browser.Driver, p *profile.Allocator, cfg Config, opts ...Option) *Orchestrator {
	if cfg.HeadlessTimeout <= 0 {
		cfg.HeadlessTimeout = 45 * time.Second
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:         s,
		driver:        d,
		profiles:      p,
		cfg:           cfg,
		notifier:      notify.Noop{},
		sessionCtx:    sessionCtx,
		cancelSession: cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewLogger()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewMetrics("kleinvault")
	}
	return o
}

// Submit validates the credentials, allocates a job row in state
// running with its profile path persisted, schedules the session
// workflow and returns the job ID immediately. It never blocks on
// browser activity or human interaction.
func (o *Orchestrator) Submit(ctx context.Context, email, password, proxy, device string) (int64, error) {
	if email == "" {
		return 0, &errors.ErrValidation{Field: "email", Reason: "must not be empty"}
	}
	if password == "" {
		return 0, &errors.ErrValidation{Field: "password", Reason: "must not be empty"}
	}
	if device == "" {
		device = o.cfg.DefaultDevice
	}

	job := &models.LoginJob{
		Email:    email,
		Password: password,
		Proxy:    proxy,
		Device:   device,
		Status:   models.StatusRunning,
	}

	id, err := o.store.CreateJob(job)
	if err != nil {
		return 0, err
	}

	o.metrics.RecordSubmission()
	o.metrics.RecordTransition(string(models.StatusRunning))
	o.logger.InfoWithContext(ctx, "login job submitted",
		"job_id", id,
		"email", email,
		"device", device,
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runSessionAndValidate(id)
	}()

	return id, nil
}

// Status returns the full status tuple for a job.
func (o *Orchestrator) Status(ctx context.Context, id int64) (*models.LoginJob, error) {
	return o.store.GetJob(id)
}

// runSessionAndValidate is the scheduled workflow: open the interactive
// session, wait for the human, then validate and write a terminal
// status. Automation failures are recovered into the terminal path; a
// job never stays in running or waiting_for_user because the browser
// misbehaved.
func (o *Orchestrator) runSessionAndValidate(id int64) {
	job, err := o.store.GetJob(id)
	if err != nil {
		// The job vanished between scheduling and execution. Nothing to do.
		o.logger.Warn("scheduled job no longer exists", "job_id", id)
		return
	}

	if job.ProfilePath == "" {
		path, err := o.profiles.Ensure(job.ID)
		if err != nil {
			o.logger.Error("profile allocation failed", "job_id", id, "error", err.Error())
			o.finishJob(job, nil)
			return
		}
		job.ProfilePath = path
		if err := o.store.UpdateJob(id, store.JobUpdate{ProfilePath: &path}); err != nil {
			o.logger.Error("failed to persist profile path", "job_id", id, "error", err.Error())
		}
	} else if err := o.profiles.EnsureDir(job.ProfilePath); err != nil {
		o.logger.Error("profile creation failed", "job_id", id, "error", err.Error())
		o.finishJob(job, nil)
		return
	}

	session := browser.Session{
		ProfileDir: job.ProfilePath,
		Proxy:      job.Proxy,
		Device:     job.Device,
		URL:        o.cfg.LoginURL,
	}

	if !o.transition(job, models.StatusWaitingForUser, store.JobUpdate{}) {
		return
	}
	o.notifier.JobWaiting(job)

	// Unbounded by design: the window stays open until the human closes
	// it. Only a shutdown cancels the session out-of-band.
	o.metrics.IncInteractiveSessions()
	sessionErr := o.driver.OpenInteractive(o.sessionCtx, session)
	o.metrics.DecInteractiveSessions()
	if sessionErr != nil {
		o.logger.Error("interactive session failed",
			"job_id", id,
			"error", sessionErr.Error(),
		)
	}

	o.finishJob(job, &session)
}

// finishJob performs the checking transition and the terminal write. It
// runs even after an automation failure so the job always settles.
func (o *Orchestrator) finishJob(job *models.LoginJob, session *browser.Session) {
	finished := time.Now().UTC()
	if !o.transition(job, models.StatusChecking, store.JobUpdate{FinishedAt: &finished}) {
		return
	}

	valid := false
	if session != nil {
		valid = o.validate(job, *session)
	}
	o.metrics.RecordValidation(valid)

	checked := time.Now().UTC()
	update := store.JobUpdate{CheckedAt: &checked, Valid: &valid}
	terminal := models.StatusInvalid

	if valid {
		accountID, err := o.promote(job)
		if err != nil {
			o.logger.Error("account promotion failed",
				"job_id", job.ID,
				"error", err.Error(),
			)
			valid = false
			update.Valid = &valid
		} else {
			terminal = models.StatusValid
			update.AccountID = &accountID
		}
	}

	if !o.transition(job, terminal, update) {
		return
	}
	if update.AccountID != nil {
		job.AccountID = update.AccountID
	}
	job.Valid = update.Valid

	o.metrics.RecordJobDuration(time.Since(job.StartedAt).Seconds())
	o.notifier.JobSettled(job)
	o.logger.Info("login job settled",
		"job_id", job.ID,
		"status", string(terminal),
	)
}

// promote copies the validated credentials into a new account row. The
// display name is derived from the email's local part and the age
// starts at zero.
func (o *Orchestrator) promote(job *models.LoginJob) (int64, error) {
	acc := &models.Account{
		Name:        models.DisplayNameFromEmail(job.Email),
		Email:       job.Email,
		Password:    job.Password,
		Proxy:       job.Proxy,
		Device:      job.Device,
		ProfilePath: job.ProfilePath,
		AgeDays:     0,
	}
	return o.store.CreateAccount(acc)
}

// transition persists a state change before any of the next state's
// work begins. A failed write is a StoreError: it is logged and the
// workflow stops rather than running ahead of the durable state.
func (o *Orchestrator) transition(job *models.LoginJob, next models.JobStatus, update store.JobUpdate) bool {
	if !job.Status.CanTransition(next) {
		o.logger.Error("illegal status transition",
			"job_id", job.ID,
			"from", string(job.Status),
			"to", string(next),
		)
		return false
	}

	update.Status = &next
	if err := o.store.UpdateJob(job.ID, update); err != nil {
		o.logger.Error("failed to persist status transition",
			"job_id", job.ID,
			"to", string(next),
			"error", err.Error(),
		)
		return false
	}

	job.Status = next
	if update.FinishedAt != nil {
		job.FinishedAt = update.FinishedAt
	}
	if update.CheckedAt != nil {
		job.CheckedAt = update.CheckedAt
	}
	o.metrics.RecordTransition(string(next))
	return true
}

// Close force-closes open sessions and waits for in-flight workers
// until ctx expires.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.cancelSession()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
