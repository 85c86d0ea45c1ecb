// Package metrics exports runner and pause gate activity as Prometheus
// metrics.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/petrijr/pausable/pkg/api"
	"github.com/petrijr/pausable/pkg/pause"
)

// DefaultNamespace prefixes every metric name when no namespace is given.
const DefaultNamespace = "pausable"

// PrometheusObserver is an api.Observer that records run, attempt and
// recovery activity.
type PrometheusObserver struct {
	runsStarted      *prometheus.CounterVec
	runsFinished     *prometheus.CounterVec
	runsInFlight     *prometheus.GaugeVec
	attemptsFailed   *prometheus.CounterVec
	recoveries       *prometheus.CounterVec
	retries          *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	recoveryDuration *prometheus.HistogramVec
}

var _ api.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewPrometheusObserver(reg prometheus.Registerer, namespace string) *PrometheusObserver {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &PrometheusObserver{
		runsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Pipeline runs started.",
		}, []string{"pipeline"}),
		runsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Pipeline runs that reached a terminal state.",
		}, []string{"pipeline", "status"}),
		runsInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Pipeline runs started but not yet finished.",
		}, []string{"pipeline"}),
		attemptsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_failed_total",
			Help:      "Attempts that ended in a step failure.",
		}, []string{"pipeline", "step"}),
		recoveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recoveries_total",
			Help:      "Recovery actions run after a failed attempt.",
		}, []string{"pipeline", "result"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries scheduled after a successful recovery.",
		}, []string{"pipeline"}),
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pipeline", "step", "result"}),
		recoveryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recovery_duration_seconds",
			Help:      "Recovery action execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pipeline"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (o *PrometheusObserver) OnRunStart(ctx context.Context, run *api.RunInstance) {
	o.runsStarted.WithLabelValues(run.Pipeline).Inc()
	o.runsInFlight.WithLabelValues(run.Pipeline).Inc()
}

func (o *PrometheusObserver) OnRunSucceeded(ctx context.Context, run *api.RunInstance) {
	o.runsFinished.WithLabelValues(run.Pipeline, string(api.StatusSucceeded)).Inc()
	o.runsInFlight.WithLabelValues(run.Pipeline).Dec()
}

func (o *PrometheusObserver) OnRunFailed(ctx context.Context, run *api.RunInstance, err error) {
	o.runsFinished.WithLabelValues(run.Pipeline, string(api.StatusFailed)).Inc()
	o.runsInFlight.WithLabelValues(run.Pipeline).Dec()
}

func (o *PrometheusObserver) OnStepStart(ctx context.Context, run *api.RunInstance, stepName string, idx int) {
}

func (o *PrometheusObserver) OnStepCompleted(ctx context.Context, run *api.RunInstance, stepName string, idx int, err error, d time.Duration) {
	o.stepDuration.WithLabelValues(run.Pipeline, stepName, result(err)).Observe(d.Seconds())
}

func (o *PrometheusObserver) OnAttemptFailed(ctx context.Context, run *api.RunInstance, err *api.TaskStepError) {
	o.attemptsFailed.WithLabelValues(run.Pipeline, err.Step).Inc()
}

func (o *PrometheusObserver) OnRecoveryCompleted(ctx context.Context, run *api.RunInstance, err error, d time.Duration) {
	o.recoveries.WithLabelValues(run.Pipeline, result(err)).Inc()
	o.recoveryDuration.WithLabelValues(run.Pipeline).Observe(d.Seconds())
}

func (o *PrometheusObserver) OnRetryScheduled(ctx context.Context, run *api.RunInstance, delay time.Duration) {
	o.retries.WithLabelValues(run.Pipeline).Inc()
}

// GateCollector mirrors a pause gate into a gauge and a pause counter.
type GateCollector struct {
	paused prometheus.Gauge
	pauses prometheus.Counter

	mu     sync.Mutex
	last   bool
	seeded bool
	stop   func()
}

// TrackGate starts mirroring g. Call Stop to detach from the gate.
func TrackGate(reg prometheus.Registerer, namespace string, g *pause.Gate) *GateCollector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	c := &GateCollector{
		paused: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_paused",
			Help:      "1 while the pause gate is closed.",
		}),
		pauses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_pauses_total",
			Help:      "Transitions of the pause gate from open to closed.",
		}),
	}
	c.stop = g.Subscribe(c.observe)
	return c
}

func (c *GateCollector) observe(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if paused {
		c.paused.Set(1)
	} else {
		c.paused.Set(0)
	}
	// The first value is the replayed current state, not a transition.
	if c.seeded && paused && !c.last {
		c.pauses.Inc()
	}
	c.last = paused
	c.seeded = true
}

// Stop detaches the collector from its gate. The metrics keep their last
// values.
func (c *GateCollector) Stop() {
	c.stop()
}
