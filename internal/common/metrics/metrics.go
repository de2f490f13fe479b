// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"vendor-onboarding/internal/common/errors"
	"vendor-onboarding/internal/onboarding"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_step_submissions_total",
			Help: "Step submissions sent to the vendor API",
		},
		[]string{"step", "outcome", "error_code"},
	)

	StepSubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboarding_step_submission_duration_seconds",
			Help:    "Duration of step submissions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	AdvancesIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_advances_ignored_total",
			Help: "Advance calls dropped because a submission was in flight",
		},
		[]string{"step"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_validation_failures_total",
			Help: "Advance calls stopped by step validation",
		},
		[]string{"step"},
	)

	Bootstraps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_bootstraps_total",
			Help: "Profile bootstraps by result",
		},
		[]string{"result"},
	)

	WorkflowsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_workflows_completed_total",
			Help: "Vendors that finished onboarding",
		},
	)

	SinkDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_completion_sink_deliveries_total",
			Help: "Completion record deliveries per sink",
		},
		[]string{"sink", "status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onboarding_active_sessions",
			Help: "Onboarding sessions held by the host",
		},
	)
)

// StepRecorder feeds controller events into the prometheus vectors.
type StepRecorder struct{}

var _ onboarding.Observer = StepRecorder{}

func (StepRecorder) StepSubmitted(step onboarding.Step, took time.Duration, err error) {
	label := step.String()
	StepSubmissionDuration.WithLabelValues(label).Observe(took.Seconds())
	if err != nil {
		StepSubmissions.WithLabelValues(label, "failed", string(errors.Normalize(err).Code)).Inc()
		return
	}
	StepSubmissions.WithLabelValues(label, "saved", "").Inc()
}

func (StepRecorder) AdvanceIgnored(step onboarding.Step) {
	AdvancesIgnored.WithLabelValues(step.String()).Inc()
}

func (StepRecorder) ValidationFailed(step onboarding.Step, _ int) {
	ValidationFailures.WithLabelValues(step.String()).Inc()
}

func (StepRecorder) BootstrapFinished(found bool, err error) {
	switch {
	case err != nil:
		Bootstraps.WithLabelValues("failed").Inc()
	case found:
		Bootstraps.WithLabelValues("resumed").Inc()
	default:
		Bootstraps.WithLabelValues("fresh").Inc()
	}
}

func (StepRecorder) WorkflowCompleted() {
	WorkflowsCompleted.Inc()
}

// RecordSinkDelivery counts one sink attempt.
func RecordSinkDelivery(sink string, err error) {
	status := "delivered"
	if err != nil {
		status = "failed"
	}
	SinkDeliveries.WithLabelValues(sink, status).Inc()
}
