package observability

import (
	"context"
	"fmt"
	"time"

	"vendor-onboarding/internal/onboarding"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/otlptranslator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter and tracer providers.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerShutdown func(context.Context) error
	meter          otelmetric.Meter

	submissions  otelmetric.Int64Counter
	submitTiming otelmetric.Float64Histogram
	completions  otelmetric.Int64Counter
}

type Options struct {
	ServiceName    string
	JaegerEndpoint string
	SampleRatio    float64
	// Registerer receives the otel prometheus collector; nil means the
	// default prometheus registry.
	Registerer promclient.Registerer
}

// New installs a meter provider backed by the prometheus exporter and, when
// a Jaeger endpoint is configured, a global tracer provider.
func New(opts Options) (*Observability, error) {
	exporterOpts := []prometheus.Option{
		prometheus.WithTranslationStrategy(otlptranslator.UnderscoreEscapingWithSuffixes),
	}
	if opts.Registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(opts.Registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(opts.ServiceName)

	o := &Observability{
		meterProvider:  provider,
		tracerShutdown: func(context.Context) error { return nil },
		meter:          meter,
	}

	o.submissions, _ = meter.Int64Counter(
		"onboarding.step.submissions",
		otelmetric.WithDescription("Step submissions by step and status"),
	)
	o.submitTiming, _ = meter.Float64Histogram(
		"onboarding.step.duration",
		otelmetric.WithDescription("Step submission duration"),
		otelmetric.WithUnit("ms"),
	)
	o.completions, _ = meter.Int64Counter(
		"onboarding.workflows.completed",
		otelmetric.WithDescription("Vendors that finished onboarding"),
	)

	if opts.JaegerEndpoint != "" {
		shutdown, err := installTracer(opts)
		if err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, err
		}
		o.tracerShutdown = shutdown
	}
	return o, nil
}

var _ onboarding.Observer = (*Observability)(nil)

func (o *Observability) StepSubmitted(step onboarding.Step, took time.Duration, err error) {
	status := "saved"
	if err != nil {
		status = "failed"
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("step", step.String()),
		attribute.String("status", status),
	)
	ctx := context.Background()
	if o.submissions != nil {
		o.submissions.Add(ctx, 1, attrs)
	}
	if o.submitTiming != nil {
		o.submitTiming.Record(ctx, float64(took.Milliseconds()), attrs)
	}
}

func (o *Observability) AdvanceIgnored(onboarding.Step) {}
func (o *Observability) ValidationFailed(onboarding.Step, int) {}
func (o *Observability) BootstrapFinished(bool, error) {}

func (o *Observability) WorkflowCompleted() {
	if o.completions != nil {
		o.completions.Add(context.Background(), 1)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerShutdown != nil {
		_ = o.tracerShutdown(ctx)
	}
}
