package host

import (
	"strconv"

	"vendor-onboarding/internal/onboarding"
)

type failureView struct {
	Step      int    `json:"step"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type completionView struct {
	Steps      map[string]bool `json:"steps"`
	Percentage float64         `json:"percentage"`
}

// snapshotView is the JSON rendering of onboarding.Snapshot.
type snapshotView struct {
	CurrentStep      int               `json:"currentStep"`
	StepName         string            `json:"stepName"`
	Phase            string            `json:"phase"`
	Draft            onboarding.Draft  `json:"draft"`
	Errors           map[string]string `json:"errors"`
	IsSubmitting     bool              `json:"isSubmitting"`
	IsBootstrapping  bool              `json:"isBootstrapping"`
	Completion       completionView    `json:"completion"`
	FurthestStep     int               `json:"furthestStep"`
	Failure          *failureView      `json:"failure,omitempty"`
	BootstrapWarning string            `json:"bootstrapWarning,omitempty"`
}

func renderSnapshot(s onboarding.Snapshot) snapshotView {
	v := snapshotView{
		CurrentStep:     int(s.CurrentStep),
		StepName:        s.CurrentStep.String(),
		Phase:           s.Phase.String(),
		Draft:           s.Draft,
		Errors:          renderErrors(s.Errors),
		IsSubmitting:    s.IsSubmitting,
		IsBootstrapping: s.IsBootstrapping,
		Completion: completionView{
			Steps:      make(map[string]bool, len(s.Completion.Steps)),
			Percentage: s.Completion.Percentage,
		},
		FurthestStep: int(s.FurthestStep),
	}
	for step, done := range s.Completion.Steps {
		v.Completion.Steps[strconv.Itoa(int(step))] = done
	}
	if s.Failure != nil {
		v.Failure = renderFailure(s.Failure)
	}
	if s.BootstrapWarning != nil {
		v.BootstrapWarning = s.BootstrapWarning.Cause.Message
	}
	return v
}

func renderFailure(f *onboarding.PersistenceError) *failureView {
	return &failureView{
		Step:      int(f.Step),
		Code:      string(f.Cause.Code),
		Message:   f.Cause.Message,
		Retryable: f.Cause.Retryable,
	}
}

func renderErrors(errs onboarding.ErrorMap) map[string]string {
	out := make(map[string]string, len(errs))
	for f, msg := range errs {
		out[string(f)] = msg
	}
	return out
}
