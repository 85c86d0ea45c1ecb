package api

import "time"

// EventType identifies a run history event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunSucceeded EventType = "run.succeeded"
	EventRunFailed    EventType = "run.failed"

	EventAttemptStarted EventType = "attempt.started"
	EventAttemptFailed  EventType = "attempt.failed"

	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"

	EventRecoveryStarted   EventType = "recovery.started"
	EventRecoveryCompleted EventType = "recovery.completed"
	EventRecoveryFailed    EventType = "recovery.failed"

	EventRetryScheduled EventType = "retry.scheduled"
)

// RunEvent is a minimal append-only history record for audit/debugging.
type RunEvent struct {
	RunID string
	At    time.Time
	Type  EventType

	Pipeline string
	Attempt  int
	// Step is the step index, or -1 when the event is not about a step.
	Step int

	// Small, human-oriented details (step name, error string, delay).
	Detail string
}
