// Package governor tracks consecutive failures against the remote target and
// decides when the run must cool down or rotate to a fresh account.
package governor

import (
	"time"

	"go.uber.org/zap"

	"linkcheck/internal/domain"
)

const (
	DefaultTripThreshold = 5
	DefaultCooldown      = 5 * time.Minute
)

// Governor counts consecutive error-class outcomes and flags a cooldown
// window once the trip threshold is reached. A clean negative classification
// is still progress and resets the counter.
type Governor struct {
	tripThreshold int
	cooldown      time.Duration
	consecutive   int
	cooldownUntil time.Time
	now           func() time.Time
	logger        *zap.Logger
}

func New(tripThreshold int, cooldown time.Duration, logger *zap.Logger) *Governor {
	if tripThreshold <= 0 {
		tripThreshold = DefaultTripThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Governor{
		tripThreshold: tripThreshold,
		cooldown:      cooldown,
		now:           time.Now,
		logger:        logger,
	}
}

// RecordOutcome feeds one classification back into the failure counter.
func (g *Governor) RecordOutcome(o domain.Outcome) {
	switch o.Status {
	case domain.StatusError, domain.StatusRateLimitSuspected:
		g.consecutive++
		g.maybeTrip()
	case domain.StatusWorking, domain.StatusFailed:
		g.consecutive = 0
	}
}

// RecordLockout applies the fixed penalty for a "too many attempts" login
// signal, which trips the cooldown in one step.
func (g *Governor) RecordLockout() {
	g.consecutive += g.tripThreshold
	g.maybeTrip()
}

func (g *Governor) maybeTrip() {
	if g.consecutive < g.tripThreshold {
		return
	}
	g.cooldownUntil = g.now().Add(g.cooldown)
	g.consecutive = 0
	g.logger.Warn("consecutive error limit reached, cooldown engaged",
		zap.Int("threshold", g.tripThreshold),
		zap.Duration("cooldown", g.cooldown))
}

func (g *Governor) ConsecutiveErrors() int { return g.consecutive }

// CooldownFlagged reports whether a cooldown window has been set and not yet
// cleared, expired or not.
func (g *Governor) CooldownFlagged() bool { return !g.cooldownUntil.IsZero() }

// CooldownRemaining returns how much of the active cooldown window is left.
func (g *Governor) CooldownRemaining() time.Duration {
	if g.cooldownUntil.IsZero() {
		return 0
	}
	remaining := g.cooldownUntil.Sub(g.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClearCooldown drops the cooldown window and the error counter.
func (g *Governor) ClearCooldown() {
	g.cooldownUntil = time.Time{}
	g.consecutive = 0
}

// ShouldRotateForCooldown reports whether the orchestrator should rotate to a
// fresh account: a flagged cooldown has expired, the current account has done
// at least switchThreshold links, and there is another account to rotate to.
func (g *Governor) ShouldRotateForCooldown(poolSize, linksChecked, switchThreshold int) bool {
	return g.CooldownFlagged() &&
		g.now().After(g.cooldownUntil) &&
		switchThreshold > 0 &&
		linksChecked >= switchThreshold &&
		poolSize > 1
}
