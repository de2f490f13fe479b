package onboarding

import (
	"context"
	"time"
)

// SavedProfile is what FetchDraft returns for a vendor with a saved draft.
// Completion is nil when the server has no snapshot.
type SavedProfile struct {
	Draft      Draft
	Completion *Completion
}

// StepResult is a successful submission. Completion is nil when the server
// answered without a completion object.
type StepResult struct {
	Completion *Completion
}

// StepStore persists steps on behalf of one vendor. FetchDraft returns
// ErrDraftNotFound when nothing has been saved yet. Implementations should
// return *errors.StandardError values so failures classify cleanly.
type StepStore interface {
	FetchDraft(ctx context.Context) (*SavedProfile, error)
	SubmitVendorType(ctx context.Context, p VendorTypePayload) (*StepResult, error)
	SubmitBusinessInfo(ctx context.Context, p BusinessInfoPayload) (*StepResult, error)
	SubmitVerification(ctx context.Context, p VerificationPayload) (*StepResult, error)
}

func submit(ctx context.Context, store StepStore, p StepPayload) (*StepResult, error) {
	switch p := p.(type) {
	case VendorTypePayload:
		return store.SubmitVendorType(ctx, p)
	case BusinessInfoPayload:
		return store.SubmitBusinessInfo(ctx, p)
	case VerificationPayload:
		return store.SubmitVerification(ctx, p)
	}
	return nil, ErrUnknownStep
}

// Observer receives engine events for metrics and tracing. Calls happen
// outside the controller lock.
type Observer interface {
	StepSubmitted(step Step, took time.Duration, err error)
	AdvanceIgnored(step Step)
	ValidationFailed(step Step, fields int)
	BootstrapFinished(found bool, err error)
	WorkflowCompleted()
}

type nopObserver struct{}

func (nopObserver) StepSubmitted(Step, time.Duration, error) {}
func (nopObserver) AdvanceIgnored(Step) {}
func (nopObserver) ValidationFailed(Step, int) {}
func (nopObserver) BootstrapFinished(bool, error) {}
func (nopObserver) WorkflowCompleted() {}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) StepSubmitted(step Step, took time.Duration, err error) {
	for _, x := range o {
		x.StepSubmitted(step, took, err)
	}
}

func (o Observers) AdvanceIgnored(step Step) {
	for _, x := range o {
		x.AdvanceIgnored(step)
	}
}

func (o Observers) ValidationFailed(step Step, fields int) {
	for _, x := range o {
		x.ValidationFailed(step, fields)
	}
}

func (o Observers) BootstrapFinished(found bool, err error) {
	for _, x := range o {
		x.BootstrapFinished(found, err)
	}
}

func (o Observers) WorkflowCompleted() {
	for _, x := range o {
		x.WorkflowCompleted()
	}
}
