package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"linkcheck/internal/domain"
)

// AuthOutcome is the terminal result of one login attempt.
type AuthOutcome int

const (
	AuthSuccess AuthOutcome = iota
	AuthChallenge
	AuthLockedOut
	AuthBadCredentials
	AuthTimeout
	AuthUnknownFailure
)

func (a AuthOutcome) String() string {
	switch a {
	case AuthSuccess:
		return "SUCCESS"
	case AuthChallenge:
		return "CHALLENGE"
	case AuthLockedOut:
		return "LOCKED_OUT"
	case AuthBadCredentials:
		return "BAD_CREDENTIALS"
	case AuthTimeout:
		return "TIMEOUT"
	}
	return "UNKNOWN_FAILURE"
}

// State is the controller lifecycle state.
type State string

const (
	StateAbsent         State = "ABSENT"
	StateStarting       State = "STARTING"
	StateAuthenticating State = "AUTHENTICATING"
	StateReady          State = "READY"
	StateDead           State = "DEAD"
)

// Login page interaction points on the remote target.
const (
	loginURL         = "https://www.linkedin.com/login"
	usernameSelector = "#username"
	passwordSelector = "#password"
	submitSelector   = "button[type='submit']"
	loggedInURLMark  = "feed"
)

// Terminal login signals. The login wait races all of them because the
// remote target nondeterministically lands on any of these instead of the
// happy-path redirect.
var (
	challengeURLMarks      = []string{"checkpoint/challenge", "login_verify"}
	lockoutTexts           = []string{"too many attempts", "too many login attempts", "temporarily restricted"}
	credentialErrorMarkers = []string{"error-for-password", "error-for-username"}
)

// Credentials is the identity handed to Login.
type Credentials struct {
	Email  string
	Secret string
}

// Controller owns the single live browser session. It is not safe for
// concurrent use; the orchestrator's loop owns it for the run's lifetime.
type Controller struct {
	newDriver    DriverFactory
	driver       Driver
	state        State
	loginTimeout time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewController(factory DriverFactory, loginTimeout time.Duration, logger *zap.Logger) *Controller {
	return &Controller{
		newDriver:    factory,
		state:        StateAbsent,
		loginTimeout: loginTimeout,
		pollInterval: 500 * time.Millisecond,
		logger:       logger,
	}
}

// Start brings up a fresh browser session, tearing down any prior one.
func (c *Controller) Start(ctx context.Context) error {
	c.Teardown()
	c.state = StateStarting
	d := c.newDriver()
	if err := d.Start(ctx); err != nil {
		c.state = StateAbsent
		var sf *SetupFault
		if errors.As(err, &sf) {
			return err
		}
		return &SetupFault{Err: err}
	}
	c.driver = d
	c.state = StateReady
	return nil
}

func (c *Controller) State() State { return c.state }

// Ready reports whether a live, authenticated-or-authenticable session exists.
func (c *Controller) Ready() bool { return c.state == StateReady && c.driver != nil }

// Login submits credentials and races the known terminal signals with a
// bounded wait. Absence of any signal within the wait is a timeout.
func (c *Controller) Login(ctx context.Context, cred Credentials) AuthOutcome {
	if c.driver == nil {
		return AuthUnknownFailure
	}
	c.state = StateAuthenticating
	c.logger.Info("attempting login", zap.String("account", cred.Email))

	if _, err := c.driver.Navigate(ctx, loginURL); err != nil {
		c.logger.Error("login page navigation failed", zap.Error(err))
		c.handleFault(err)
		return AuthUnknownFailure
	}
	if err := c.driver.Fill(ctx, usernameSelector, cred.Email); err != nil {
		c.logger.Error("username field unavailable", zap.Error(err))
		c.handleFault(err)
		return AuthUnknownFailure
	}
	if err := c.driver.Fill(ctx, passwordSelector, cred.Secret); err != nil {
		c.logger.Error("password field unavailable", zap.Error(err))
		c.handleFault(err)
		return AuthUnknownFailure
	}
	if err := c.driver.Click(ctx, submitSelector); err != nil {
		c.logger.Error("submit button unavailable", zap.Error(err))
		c.handleFault(err)
		return AuthUnknownFailure
	}

	deadline := time.Now().Add(c.loginTimeout)
	for {
		snap, err := c.driver.Snapshot(ctx)
		if err != nil {
			c.logger.Error("login state poll failed", zap.Error(err))
			c.handleFault(err)
			return AuthUnknownFailure
		}
		if outcome, terminal := inspectLoginPage(snap); terminal {
			if outcome == AuthSuccess {
				c.state = StateReady
				c.logger.Info("login successful", zap.String("account", cred.Email))
			} else {
				c.logger.Warn("login not successful",
					zap.String("account", cred.Email),
					zap.String("outcome", outcome.String()))
			}
			return outcome
		}
		if time.Now().After(deadline) {
			if containsAnyFold(snap.HTMLSource, lockoutTexts) {
				return AuthLockedOut
			}
			c.logger.Error("timeout waiting for login signal", zap.String("account", cred.Email))
			return AuthTimeout
		}
		select {
		case <-ctx.Done():
			return AuthTimeout
		case <-time.After(c.pollInterval):
		}
	}
}

// inspectLoginPage maps the current page onto a terminal login signal, if any.
func inspectLoginPage(snap *domain.NavigationResult) (AuthOutcome, bool) {
	url := strings.ToLower(snap.FinalURL)
	switch {
	case strings.Contains(url, loggedInURLMark):
		return AuthSuccess, true
	case containsAnyFold(snap.FinalURL, challengeURLMarks):
		return AuthChallenge, true
	case containsAnyFold(snap.HTMLSource, lockoutTexts):
		return AuthLockedOut, true
	case containsAnyFold(snap.HTMLSource, credentialErrorMarkers):
		return AuthBadCredentials, true
	}
	return AuthUnknownFailure, false
}

// VerifyLogin re-inspects the current page after an external challenge
// resolution and promotes the session to READY on success.
func (c *Controller) VerifyLogin(ctx context.Context) AuthOutcome {
	if c.driver == nil {
		return AuthUnknownFailure
	}
	snap, err := c.driver.Snapshot(ctx)
	if err != nil {
		c.handleFault(err)
		return AuthUnknownFailure
	}
	if strings.Contains(strings.ToLower(snap.FinalURL), loggedInURLMark) {
		c.state = StateReady
		return AuthSuccess
	}
	return AuthUnknownFailure
}

// Navigate loads url on the live session. A fatal fault tears the session
// down and leaves the controller ABSENT so the orchestrator can re-acquire.
func (c *Controller) Navigate(ctx context.Context, url string) (*domain.NavigationResult, error) {
	if !c.Ready() {
		return nil, &SessionFault{Op: "navigate", Err: errors.New("no live session")}
	}
	nav, err := c.driver.Navigate(ctx, url)
	if err != nil {
		c.handleFault(err)
		return nil, err
	}
	return nav, nil
}

// InteractiveElements returns the current page's action-capable controls.
// Scan failures are swallowed: a missing button list only costs confidence.
func (c *Controller) InteractiveElements(ctx context.Context) []domain.InteractiveElement {
	if c.driver == nil {
		return nil
	}
	elements, err := c.driver.InteractiveElements(ctx)
	if err != nil {
		c.logger.Debug("interactive element scan failed", zap.Error(err))
		return nil
	}
	return elements
}

// Teardown is idempotent and always leaves the controller ABSENT.
func (c *Controller) Teardown() {
	if c.driver != nil {
		c.driver.Quit()
		c.driver = nil
	}
	c.state = StateAbsent
}

func (c *Controller) handleFault(err error) {
	if IsFatalFault(err) {
		c.logger.Error("session crashed or disconnected, tearing down", zap.Error(err))
		c.state = StateDead
		c.Teardown()
	}
}

func containsAnyFold(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
