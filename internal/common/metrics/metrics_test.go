package metrics

import (
	"context"
	"testing"
	"time"

	"vendor-onboarding/internal/onboarding"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStepRecorder(t *testing.T) {
	r := StepRecorder{}

	saved := testutil.ToFloat64(StepSubmissions.WithLabelValues("business-info", "saved", ""))
	failed := testutil.ToFloat64(StepSubmissions.WithLabelValues("business-info", "failed", "VENDOR_API_TIMEOUT"))
	ignored := testutil.ToFloat64(AdvancesIgnored.WithLabelValues("business-info"))
	completed := testutil.ToFloat64(WorkflowsCompleted)

	r.StepSubmitted(onboarding.StepBusinessInfo, 10*time.Millisecond, nil)
	r.StepSubmitted(onboarding.StepBusinessInfo, 10*time.Millisecond, context.DeadlineExceeded)
	r.AdvanceIgnored(onboarding.StepBusinessInfo)
	r.WorkflowCompleted()

	assert.Equal(t, saved+1, testutil.ToFloat64(StepSubmissions.WithLabelValues("business-info", "saved", "")))
	assert.Equal(t, failed+1, testutil.ToFloat64(StepSubmissions.WithLabelValues("business-info", "failed", "VENDOR_API_TIMEOUT")))
	assert.Equal(t, ignored+1, testutil.ToFloat64(AdvancesIgnored.WithLabelValues("business-info")))
	assert.Equal(t, completed+1, testutil.ToFloat64(WorkflowsCompleted))
}

func TestBootstrapAndSinkCounters(t *testing.T) {
	r := StepRecorder{}
	fresh := testutil.ToFloat64(Bootstraps.WithLabelValues("fresh"))
	failedBoot := testutil.ToFloat64(Bootstraps.WithLabelValues("failed"))
	sinkFailed := testutil.ToFloat64(SinkDeliveries.WithLabelValues("audit", "failed"))

	r.BootstrapFinished(false, nil)
	r.BootstrapFinished(false, context.DeadlineExceeded)
	RecordSinkDelivery("audit", context.DeadlineExceeded)

	assert.Equal(t, fresh+1, testutil.ToFloat64(Bootstraps.WithLabelValues("fresh")))
	assert.Equal(t, failedBoot+1, testutil.ToFloat64(Bootstraps.WithLabelValues("failed")))
	assert.Equal(t, sinkFailed+1, testutil.ToFloat64(SinkDeliveries.WithLabelValues("audit", "failed")))
}
