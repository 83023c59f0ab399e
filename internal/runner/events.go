package runner

import (
	"time"

	"linkcheck/internal/domain"
	"linkcheck/internal/report"
)

// EventKind tags the one-way notifications the orchestrator emits.
type EventKind string

const (
	EventProgress  EventKind = "progress"
	EventCooldown  EventKind = "cooldown"
	EventRotation  EventKind = "rotation"
	EventCompleted EventKind = "completed"
)

// Event is delivered on a buffered channel; the emitter drops events rather
// than block navigation when no consumer keeps up.
type Event struct {
	Kind              EventKind
	State             domain.RunState
	Stats             domain.RunStats
	Account           string
	AccountLinks      int
	PoolSize          int
	CooldownRemaining time.Duration
	Paths             *report.OutputPaths
}
