package onboarding

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "vendor-onboarding/internal/common/errors"
)

var (
	ErrDraftNotFound      = errors.New("onboarding: no saved draft")
	ErrUnknownField       = errors.New("onboarding: unknown field")
	ErrUnknownStep        = errors.New("onboarding: unknown step")
	ErrNotReady           = errors.New("onboarding: bootstrap has not completed")
	ErrAlreadyInitialized = errors.New("onboarding: already initialized")
	ErrWorkflowCompleted  = errors.New("onboarding: workflow already completed")
	ErrClosed             = errors.New("onboarding: controller closed")
)

// ValidationError is the local, field-scoped failure of a step.
type ValidationError struct {
	Step   Step
	Fields ErrorMap
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return fmt.Sprintf("step %d invalid: %s", int(e.Step), strings.Join(names, ", "))
}

// PersistenceError is a failed step submission. It leaves the step, the
// draft and the completion untouched; the caller may retry.
type PersistenceError struct {
	Step  Step
	Cause *apperrors.StandardError
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("step %d not saved: %s", int(e.Step), e.Cause.Message)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// Retryable reports whether resubmitting unchanged data can succeed.
func (e *PersistenceError) Retryable() bool { return e.Cause.Retryable }

// BootstrapError is the non-fatal failure to load a saved draft.
type BootstrapError struct {
	Cause *apperrors.StandardError
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("saved draft not loaded: %s", e.Cause.Message)
}

func (e *BootstrapError) Unwrap() error { return e.Cause }

func newPersistenceError(step Step, err error) *PersistenceError {
	return &PersistenceError{Step: step, Cause: apperrors.Normalize(err)}
}

func newBootstrapError(err error) *BootstrapError {
	cause := apperrors.Normalize(err)
	if cause.Code == apperrors.ErrCodeInternal {
		cause = apperrors.NewDraftFetchFailedError(err)
	}
	return &BootstrapError{Cause: cause}
}
