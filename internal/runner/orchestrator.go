// Package runner drives one checking run end to end: it pulls tasks, keeps a
// live authenticated session, consults the rate-limit governor, classifies
// every page, and persists the results when the loop exits.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"linkcheck/internal/accounts"
	"linkcheck/internal/classify"
	"linkcheck/internal/config"
	"linkcheck/internal/domain"
	"linkcheck/internal/governor"
	"linkcheck/internal/links"
	"linkcheck/internal/monitoring"
	"linkcheck/internal/report"
	"linkcheck/internal/session"
	"linkcheck/internal/storage"
)

// ConfigurationError aborts a run before it starts.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Reason }

// ChallengeResolver lets an operator resolve a login security challenge out
// of band. Resolve blocks until the challenge is handled or ctx expires and
// reports whether it was resolved.
type ChallengeResolver interface {
	Resolve(ctx context.Context, email string) bool
}

// Orchestrator owns one run at a time. A single worker goroutine drives the
// browser session; the only shared state is the stop flag, the event channel,
// and the mutex-guarded stats.
type Orchestrator struct {
	cfg      *config.Config
	pool     *accounts.Pool
	governor *governor.Governor
	session  *session.Controller
	writer   *report.Writer
	audit    *storage.AuditStore // optional
	cache    *storage.CheckCache // optional
	metrics  *monitoring.Metrics
	resolver ChallengeResolver // optional
	logger   *zap.Logger

	stop   atomic.Bool
	events chan Event

	mu           sync.Mutex
	state        domain.RunState
	stats        domain.RunStats
	working      []domain.LinkResult
	failed       []domain.LinkResult
	account      string
	accountLinks int

	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(cfg *config.Config, pool *accounts.Pool, gov *governor.Governor, sess *session.Controller,
	writer *report.Writer, audit *storage.AuditStore, cache *storage.CheckCache,
	metrics *monitoring.Metrics, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		pool:     pool,
		governor: gov,
		session:  sess,
		writer:   writer,
		audit:    audit,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		events:   make(chan Event, 64),
		state:    domain.RunIdle,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	o.sleep = o.interruptibleSleep
	return o
}

// SetChallengeResolver wires the human-in-the-loop hook for login challenges.
func (o *Orchestrator) SetChallengeResolver(r ChallengeResolver) { o.resolver = r }

// Events is the one-directional notification channel, closed when Run exits.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Stop requests a cooperative stop. It is idempotent and safe to call from
// any goroutine at any time; the loop honors it at the next task boundary.
func (o *Orchestrator) Stop() {
	if o.stop.CompareAndSwap(false, true) {
		o.logger.Info("stop requested")
		o.mu.Lock()
		if o.state == domain.RunRunning {
			o.state = domain.RunStopping
		}
		o.mu.Unlock()
	}
}

func (o *Orchestrator) State() domain.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Stats() domain.RunStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// ActiveAccount reports the account driving the session and how many links it
// has checked. The values are snapshots taken at task boundaries, so readers
// on other goroutines never touch the pool itself.
func (o *Orchestrator) ActiveAccount() (string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.account, o.accountLinks
}

// noteAccount snapshots the pool state for concurrent readers. Only the run
// goroutine calls it.
func (o *Orchestrator) noteAccount() {
	account := ""
	if cred, err := o.pool.Current(); err == nil {
		account = cred.Email
	}
	links := o.pool.LinksChecked()
	o.mu.Lock()
	o.account = account
	o.accountLinks = links
	o.mu.Unlock()
}

func (o *Orchestrator) setState(s domain.RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes one full checking run. It always terminates with a written
// result set and a final state; per-task faults never escape the loop.
func (o *Orchestrator) Run(ctx context.Context) (*report.OutputPaths, error) {
	defer close(o.events)

	o.stop.Store(false)
	o.mu.Lock()
	o.state = domain.RunInitializing
	o.stats = domain.RunStats{}
	o.working = nil
	o.failed = nil
	o.account = ""
	o.accountLinks = 0
	o.mu.Unlock()

	if o.pool.Size() == 0 {
		o.setState(domain.RunStopped)
		return nil, &ConfigurationError{Reason: "no accounts configured"}
	}

	tasks, err := links.ReadFile(o.cfg.InputFile, o.logger)
	if err != nil {
		o.setState(domain.RunStopped)
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if len(tasks) == 0 {
		o.logger.Warn("no valid urls to process")
		paths, werr := o.writer.Write(nil, nil)
		o.setState(domain.RunCompleted)
		o.emit(Event{Kind: EventCompleted, State: domain.RunCompleted, Paths: paths})
		return paths, werr
	}

	if err := o.acquireSession(ctx); err != nil {
		o.logger.Error("initial session acquisition failed, aborting run", zap.Error(err))
		o.session.Teardown()
		o.setState(domain.RunStopped)
		return nil, fmt.Errorf("initial session acquisition failed: %w", err)
	}

	o.setState(domain.RunRunning)
	o.noteAccount()
	runID := time.Now().UTC().Format("20060102T150405Z")
	aborted := false

	for _, task := range tasks {
		if o.stop.Load() {
			o.logger.Info("stop requested, halting before next task")
			break
		}

		o.waitOutCooldown(ctx)

		if o.governor.ShouldRotateForCooldown(o.pool.Size(), o.pool.LinksChecked(), o.cfg.AccountSwitchThreshold) {
			o.logger.Info("cooldown expired, rotating to a fresh account")
			o.governor.ClearCooldown()
			o.rotate(ctx)
		} else if o.switchThresholdReached() {
			o.logger.Info("account switch threshold reached",
				zap.Int("threshold", o.cfg.AccountSwitchThreshold))
			o.rotate(ctx)
		}

		if !o.session.Ready() {
			if err := o.reacquireSession(ctx); err != nil {
				o.logger.Error("cannot recover session, stopping run", zap.Error(err))
				aborted = true
				break
			}
		}

		if o.stop.Load() {
			break
		}

		if skipped, status := o.recentlyChecked(ctx, task.URL); skipped {
			o.logger.Info("skipping recently checked url",
				zap.String("url", task.URL), zap.String("prior_status", string(status)))
			continue
		}

		o.pause(ctx)

		cooldownWasActive := o.governor.CooldownRemaining() > 0

		result := o.processTask(ctx, task)
		if result.Status == domain.StatusCancelled {
			break
		}
		o.record(ctx, result)
		o.emitProgress()

		if !cooldownWasActive && o.governor.CooldownRemaining() > 0 {
			o.metrics.IncCooldown()
			o.emit(Event{
				Kind:              EventCooldown,
				State:             o.State(),
				Stats:             o.Stats(),
				CooldownRemaining: o.governor.CooldownRemaining(),
			})
			if o.pool.Size() > 1 && o.cfg.AccountSwitchThreshold > 0 {
				o.logger.Info("rotating account after cooldown trip")
				o.governor.ClearCooldown()
				o.rotate(ctx)
			}
		}
	}

	o.mu.Lock()
	working, failed := o.working, o.failed
	o.mu.Unlock()

	paths, werr := o.writer.Write(working, failed)
	if werr != nil {
		o.logger.Error("failed to write results", zap.Error(werr))
	}
	o.persistAudit(ctx, runID, working, failed)
	o.session.Teardown()

	final := domain.RunCompleted
	if o.stop.Load() || aborted {
		final = domain.RunStopped
	}
	o.setState(final)
	o.emit(Event{Kind: EventCompleted, State: final, Stats: o.Stats(), Paths: paths})
	o.logger.Info("run finished", zap.String("state", string(final)))

	if aborted {
		return paths, errors.New("run aborted: session unrecoverable")
	}
	return paths, werr
}

// processTask navigates to one link and classifies the page. Faults are
// converted into an ERROR result at this boundary, never propagated.
func (o *Orchestrator) processTask(ctx context.Context, task domain.LinkTask) domain.LinkResult {
	result := domain.LinkResult{
		Link:            task.URL,
		OriginalURL:     task.RawLine,
		LineNum:         task.LineNum,
		ContentAnalysis: map[string]string{},
	}
	if o.stop.Load() {
		result.Status = domain.StatusCancelled
		result.ResultDetails = "Run cancelled by operator"
		return result
	}

	account := ""
	if cred, err := o.pool.Current(); err == nil {
		account = cred.Email
	}
	o.logger.Info("processing link",
		zap.Int("line", task.LineNum), zap.String("url", task.URL), zap.String("account", account))

	nav, err := o.session.Navigate(ctx, task.URL)
	if err != nil {
		o.metrics.IncError("navigation")
		result.Status = domain.StatusError
		result.Error = err.Error()
		if session.IsFatalFault(err) {
			result.ResultDetails = "Browser session crashed or disconnected."
		} else {
			result.ResultDetails = "Navigation error: " + truncate(err.Error(), 100)
		}
		return result
	}

	result.FinalURL = nav.FinalURL
	outcome := classify.Classify(*nav, func() []domain.InteractiveElement {
		return o.session.InteractiveElements(ctx)
	})
	result.Status = outcome.Status
	result.ResultDetails = outcome.Detail
	result.Confidence = outcome.Confidence
	return result
}

// record updates counters, result lists, the governor, and the recheck cache
// for one completed task. Results are immutable once appended.
func (o *Orchestrator) record(ctx context.Context, result domain.LinkResult) {
	o.pool.MarkChecked()
	o.metrics.IncProcessed()
	o.metrics.IncResult(string(result.Status))

	o.mu.Lock()
	o.stats.TotalProcessed++
	switch result.Status {
	case domain.StatusWorking:
		o.stats.WorkingFound++
		o.working = append(o.working, result)
	case domain.StatusRateLimitSuspected:
		o.stats.RateLimitSuspected++
		o.failed = append(o.failed, result)
	default:
		o.stats.FailedOrInvalid++
		o.failed = append(o.failed, result)
	}
	o.mu.Unlock()

	o.governor.RecordOutcome(domain.Outcome{
		Status:     result.Status,
		Confidence: result.Confidence,
		Detail:     result.ResultDetails,
	})

	if o.cache != nil {
		if err := o.cache.MarkChecked(ctx, result.Link, result.Status, o.cfg.RecheckTTL()); err != nil {
			o.logger.Debug("recheck cache update failed", zap.Error(err))
		}
	}

	o.logger.Info("link classified",
		zap.Int("line", result.LineNum),
		zap.String("status", string(result.Status)),
		zap.String("url", result.Link))
	o.noteAccount()
}

// acquireSession starts a browser and logs in with the current account,
// burning through the retry budget and rotating on failures before giving up.
func (o *Orchestrator) acquireSession(ctx context.Context) error {
	attempts := o.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		cred, err := o.pool.Current()
		if err != nil {
			return err
		}
		if err := o.session.Start(ctx); err != nil {
			lastErr = err
			o.metrics.IncError("session_setup")
			o.logger.Error("browser start failed", zap.Int("attempt", i+1), zap.Error(err))
			o.pool.RotateNext()
			continue
		}

		outcome := o.login(ctx, cred)
		if outcome == session.AuthSuccess {
			return nil
		}
		lastErr = fmt.Errorf("login failed for %s: %s", cred.Email, outcome)
		o.session.Teardown()
		o.pool.RotateNext()
	}
	if lastErr == nil {
		lastErr = errors.New("session acquisition failed")
	}
	return lastErr
}

// login performs one login attempt, including challenge escalation and the
// lockout penalty.
func (o *Orchestrator) login(ctx context.Context, cred accounts.Credential) session.AuthOutcome {
	outcome := o.session.Login(ctx, session.Credentials{Email: cred.Email, Secret: cred.Secret})
	if outcome == session.AuthChallenge {
		outcome = o.resolveChallenge(ctx, cred.Email)
	}
	switch outcome {
	case session.AuthSuccess:
	case session.AuthLockedOut:
		o.governor.RecordLockout()
		o.metrics.IncError("login_locked_out")
	case session.AuthTimeout:
		o.metrics.IncError("login_timeout")
	case session.AuthBadCredentials:
		o.metrics.IncError("login_bad_credentials")
	default:
		o.metrics.IncError("login_failed")
	}
	return outcome
}

// resolveChallenge suspends on the external resolution hook with a bounded
// timeout. Headless or resolver-less runs treat a challenge as failure.
func (o *Orchestrator) resolveChallenge(ctx context.Context, email string) session.AuthOutcome {
	if o.resolver == nil || o.cfg.Headless {
		o.logger.Error("security challenge with no resolution path",
			zap.String("account", email), zap.Bool("headless", o.cfg.Headless))
		return session.AuthChallenge
	}
	o.logger.Warn("security challenge detected, waiting for operator", zap.String("account", email))
	rctx, cancel := context.WithTimeout(ctx, o.cfg.ChallengeTimeout())
	defer cancel()
	if !o.resolver.Resolve(rctx, email) {
		return session.AuthChallenge
	}
	return o.session.VerifyLogin(ctx)
}

func (o *Orchestrator) reacquireSession(ctx context.Context) error {
	o.logger.Warn("no live session, attempting re-acquisition")
	if err := o.acquireSession(ctx); err != nil {
		return fmt.Errorf("session re-acquisition failed: %w", err)
	}
	return nil
}

// rotate advances to the next account and brings up a fresh session for it.
// A failed login after rotation leaves the session absent; the loop's
// re-acquisition path picks it up.
func (o *Orchestrator) rotate(ctx context.Context) {
	if !o.pool.RotateNext() {
		return
	}
	o.metrics.IncRotation()
	cred, err := o.pool.Current()
	if err != nil {
		return
	}
	o.logger.Info("rotating account",
		zap.String("account", cred.Email), zap.Int("index", o.pool.CurrentIndex()))

	o.session.Teardown()
	if err := o.session.Start(ctx); err != nil {
		o.metrics.IncError("session_setup")
		o.logger.Error("session start failed after rotation", zap.Error(err))
		return
	}
	if outcome := o.login(ctx, cred); outcome != session.AuthSuccess {
		o.logger.Error("login failed after rotation",
			zap.String("account", cred.Email), zap.String("outcome", outcome.String()))
		o.session.Teardown()
		return
	}
	o.noteAccount()
	o.emit(Event{
		Kind:     EventRotation,
		State:    o.State(),
		Stats:    o.Stats(),
		Account:  cred.Email,
		PoolSize: o.pool.Size(),
	})
}

func (o *Orchestrator) switchThresholdReached() bool {
	return o.cfg.AccountSwitchThreshold > 0 &&
		o.pool.LinksChecked() >= o.cfg.AccountSwitchThreshold &&
		o.pool.Size() > 1
}

// waitOutCooldown handles an in-force cooldown window before the next task:
// rotating to a fresh account when one exists, idling out the window when
// not. The idle is interruptible by stop.
func (o *Orchestrator) waitOutCooldown(ctx context.Context) {
	remaining := o.governor.CooldownRemaining()
	if remaining <= 0 {
		return
	}
	if o.pool.Size() > 1 {
		o.logger.Info("cooldown active, rotating instead of idling",
			zap.Duration("remaining", remaining))
		o.governor.ClearCooldown()
		o.rotate(ctx)
		return
	}
	o.logger.Info("cooldown active, pausing", zap.Duration("remaining", remaining))
	o.emit(Event{
		Kind:              EventCooldown,
		State:             o.State(),
		Stats:             o.Stats(),
		CooldownRemaining: remaining,
	})
	o.sleep(ctx, remaining)
	o.governor.ClearCooldown()
}

// pause applies the randomized politeness delay before navigating.
func (o *Orchestrator) pause(ctx context.Context) {
	min, max := o.cfg.DelayMin(), o.cfg.DelayMax()
	if max <= min {
		if min > 0 {
			o.sleep(ctx, min)
		}
		return
	}
	o.sleep(ctx, min+time.Duration(o.rng.Int63n(int64(max-min))))
}

func (o *Orchestrator) recentlyChecked(ctx context.Context, url string) (bool, domain.Status) {
	if o.cache == nil || !o.cfg.SkipRecentlyChecked {
		return false, ""
	}
	status, found, err := o.cache.RecentStatus(ctx, url)
	if err != nil {
		o.logger.Debug("recheck cache lookup failed", zap.Error(err))
		return false, ""
	}
	return found, status
}

func (o *Orchestrator) persistAudit(ctx context.Context, runID string, working, failed []domain.LinkResult) {
	if o.audit == nil {
		return
	}
	all := make([]domain.LinkResult, 0, len(working)+len(failed))
	all = append(all, working...)
	all = append(all, failed...)
	if len(all) == 0 {
		return
	}
	if err := o.audit.SaveRun(ctx, runID, all); err != nil {
		o.metrics.IncError("audit_save")
		o.logger.Error("failed to persist audit trail", zap.Error(err))
	}
}

func (o *Orchestrator) emitProgress() {
	account := ""
	if cred, err := o.pool.Current(); err == nil {
		account = cred.Email
	}
	o.emit(Event{
		Kind:         EventProgress,
		State:        o.State(),
		Stats:        o.Stats(),
		Account:      account,
		AccountLinks: o.pool.LinksChecked(),
		PoolSize:     o.pool.Size(),
	})
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}

// interruptibleSleep waits d, returning early when the context is done or a
// stop was requested.
func (o *Orchestrator) interruptibleSleep(ctx context.Context, d time.Duration) bool {
	const step = 100 * time.Millisecond
	deadline := time.Now().Add(d)
	for {
		if o.stop.Load() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining > step {
			remaining = step
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(remaining):
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
