package completion

import (
	"context"
	apperrors "errors"
	"time"

	"vendor-onboarding/internal/common/errors"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/common/metrics"
)

const defaultSinkTimeout = 5 * time.Second

type registeredSink struct {
	sink    Sink
	timeout time.Duration
}

// Dispatcher delivers completion records to its sinks in registration order.
type Dispatcher struct {
	sinks  []registeredSink
	logger logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Dispatcher{logger: log.WithFields(map[string]interface{}{"component": "completion-dispatcher"})}
}

// Register adds sink with its own delivery timeout. A zero timeout uses the
// default.
func (d *Dispatcher) Register(sink Sink, timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	d.sinks = append(d.sinks, registeredSink{sink: sink, timeout: timeout})
}

// Sinks returns the registered sink names in delivery order.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.sink.Name())
	}
	return names
}

// Dispatch runs every sink even when earlier ones fail and returns the
// joined sink failures.
func (d *Dispatcher) Dispatch(ctx context.Context, rec Record) error {
	log := d.logger.WithFields(map[string]interface{}{"vendorId": rec.VendorID})

	var errs []error
	for _, s := range d.sinks {
		name := s.sink.Name()
		sinkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		err := s.sink.Deliver(sinkCtx, rec)
		cancel()

		metrics.RecordSinkDelivery(name, err)
		if err != nil {
			wrapped := errors.NewCompletionSinkFailedError(name, err)
			if se := errors.Normalize(err); se != nil && se.Code != errors.ErrCodeInternal {
				wrapped.Retryable = se.Retryable
			}
			log.Error("completion sink failed", map[string]interface{}{
				"sink":       name,
				"error":      err.Error(),
				"retryable":  wrapped.Retryable,
				"durationMs": time.Since(start).Milliseconds(),
			})
			errs = append(errs, wrapped)
			continue
		}
		log.Debug("completion sink delivered", map[string]interface{}{
			"sink":       name,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}

	if len(errs) == 0 {
		log.Info("completion dispatched", map[string]interface{}{"sinks": len(d.sinks)})
		return nil
	}
	return apperrors.Join(errs...)
}
