package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the runner for logging and metrics.
//
// Callbacks run on the run's goroutine, in order. Implementations should be
// fast and non-blocking.
type Observer interface {
	// OnRunStart is called once before the first attempt.
	OnRunStart(ctx context.Context, run *RunInstance)

	// OnRunSucceeded is called when a run reaches StatusSucceeded.
	OnRunSucceeded(ctx context.Context, run *RunInstance)

	// OnRunFailed is called when a run reaches StatusFailed.
	OnRunFailed(ctx context.Context, run *RunInstance, err error)

	// OnStepStart is called before invoking a step function.
	OnStepStart(ctx context.Context, run *RunInstance, stepName string, stepIndex int)

	// OnStepCompleted is called after a step function returns, for both
	// successes and failures (err != nil).
	OnStepCompleted(ctx context.Context, run *RunInstance, stepName string, stepIndex int, err error, duration time.Duration)

	// OnAttemptFailed is called when an attempt fails, before recovery runs.
	OnAttemptFailed(ctx context.Context, run *RunInstance, err *TaskStepError)

	// OnRecoveryCompleted is called after the recovery action returns.
	// err is nil when recovery succeeded.
	OnRecoveryCompleted(ctx context.Context, run *RunInstance, err error, duration time.Duration)

	// OnRetryScheduled is called when another attempt has been scheduled.
	OnRetryScheduled(ctx context.Context, run *RunInstance, delay time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *RunInstance)                {}
func (NoopObserver) OnRunSucceeded(ctx context.Context, run *RunInstance)            {}
func (NoopObserver) OnRunFailed(ctx context.Context, run *RunInstance, err error)    {}
func (NoopObserver) OnStepStart(ctx context.Context, run *RunInstance, s string, i int) {}
func (NoopObserver) OnStepCompleted(ctx context.Context, run *RunInstance, s string, i int, err error, d time.Duration) {
}
func (NoopObserver) OnAttemptFailed(ctx context.Context, run *RunInstance, err *TaskStepError) {}
func (NoopObserver) OnRecoveryCompleted(ctx context.Context, run *RunInstance, err error, d time.Duration) {
}
func (NoopObserver) OnRetryScheduled(ctx context.Context, run *RunInstance, delay time.Duration) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *RunInstance) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunSucceeded(ctx context.Context, run *RunInstance) {
	for _, o := range c.observers {
		o.OnRunSucceeded(ctx, run)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run *RunInstance, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, run *RunInstance, stepName string, idx int) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, run, stepName, idx)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run *RunInstance, stepName string, idx int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, stepName, idx, err, d)
	}
}

func (c *CompositeObserver) OnAttemptFailed(ctx context.Context, run *RunInstance, err *TaskStepError) {
	for _, o := range c.observers {
		o.OnAttemptFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnRecoveryCompleted(ctx context.Context, run *RunInstance, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnRecoveryCompleted(ctx, run, err, d)
	}
}

func (c *CompositeObserver) OnRetryScheduled(ctx context.Context, run *RunInstance, delay time.Duration) {
	for _, o := range c.observers {
		o.OnRetryScheduled(ctx, run, delay)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run, step and recovery
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run *RunInstance) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnRunSucceeded(ctx context.Context, run *RunInstance) {
	o.Logger.InfoContext(ctx, "run_succeeded",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("attempt", run.AttemptNumber()),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run *RunInstance, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("attempt", run.AttemptNumber()),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, run *RunInstance, stepName string, idx int) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("attempt", run.AttemptNumber()),
		slog.String("step", stepName),
		slog.Int("step_index", idx),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, run *RunInstance, stepName string, idx int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("attempt", run.AttemptNumber()),
		slog.String("step", stepName),
		slog.Int("step_index", idx),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnAttemptFailed(ctx context.Context, run *RunInstance, err *TaskStepError) {
	o.Logger.WarnContext(ctx, "attempt_failed",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("attempt", err.Attempt),
		slog.String("step", err.Step),
		slog.Any("error", err.Err),
	)
}

func (o *LoggingObserver) OnRecoveryCompleted(ctx context.Context, run *RunInstance, err error, d time.Duration) {
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "recovery_completed",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("attempt", run.AttemptNumber()),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnRetryScheduled(ctx context.Context, run *RunInstance, delay time.Duration) {
	o.Logger.InfoContext(ctx, "retry_scheduled",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("attempt", run.AttemptNumber()),
		slog.Duration("delay", delay),
	)
}

// BasicMetrics collects simple counters. It implements Observer and can be
// combined with LoggingObserver via NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted    atomic.Int64
	runsSucceeded  atomic.Int64
	runsFailed     atomic.Int64
	attemptsFailed atomic.Int64
	recoveries     atomic.Int64
	recoveryFailed atomic.Int64
	retries        atomic.Int64
	stepsCompleted atomic.Int64
	totalStepNanos atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsSucceeded int64
	RunsFailed    int64
	RunsInFlight  int64

	AttemptsFailed   int64
	Recoveries       int64
	RecoveryFailures int64
	Retries          int64

	StepsCompleted  int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run *RunInstance) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunSucceeded(ctx context.Context, run *RunInstance) {
	m.runsSucceeded.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run *RunInstance, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, run *RunInstance, stepName string, idx int, err error, d time.Duration) {
	// Only successful steps count towards the average duration.
	if err == nil {
		m.stepsCompleted.Add(1)
		m.totalStepNanos.Add(d.Nanoseconds())
	}
}

func (m *BasicMetrics) OnAttemptFailed(ctx context.Context, run *RunInstance, err *TaskStepError) {
	m.attemptsFailed.Add(1)
}

func (m *BasicMetrics) OnRecoveryCompleted(ctx context.Context, run *RunInstance, err error, d time.Duration) {
	m.recoveries.Add(1)
	if err != nil {
		m.recoveryFailed.Add(1)
	}
}

func (m *BasicMetrics) OnRetryScheduled(ctx context.Context, run *RunInstance, delay time.Duration) {
	m.retries.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	succeeded := m.runsSucceeded.Load()
	failed := m.runsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepNanos.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:      started,
		RunsSucceeded:    succeeded,
		RunsFailed:       failed,
		RunsInFlight:     started - succeeded - failed,
		AttemptsFailed:   m.attemptsFailed.Load(),
		Recoveries:       m.recoveries.Load(),
		RecoveryFailures: m.recoveryFailed.Load(),
		Retries:          m.retries.Load(),
		StepsCompleted:   steps,
		AvgStepDuration:  avg,
	}
}
