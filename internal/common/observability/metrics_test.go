package observability

import (
	"strings"
	"testing"
	"time"

	"vendor-onboarding/internal/onboarding"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_ExportsThroughPrometheus(t *testing.T) {
	reg := promclient.NewRegistry()
	o, err := New(Options{ServiceName: "onboarding-test", Registerer: reg})
	require.NoError(t, err)
	defer o.Shutdown()

	o.StepSubmitted(onboarding.StepVendorType, 15*time.Millisecond, nil)
	o.WorkflowCompleted()

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "onboarding_step_submissions_total")
	assert.Contains(t, joined, "onboarding_step_duration_milliseconds")
	assert.Contains(t, joined, "onboarding_workflows_completed_total")
	assert.NotContains(t, joined, "onboarding.step")
}
