package onboarding

import (
	"context"
	"sync"
	"time"

	"vendor-onboarding/internal/common/logger"
)

// Phase is the controller's lifecycle state. Submitting is the busy state
// that turns away concurrent advances.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseBootstrapping
	PhaseReady
	PhaseSubmitting
	PhaseCompleted
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseReady:
		return "ready"
	case PhaseSubmitting:
		return "submitting"
	case PhaseCompleted:
		return "completed"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Outcome describes what an Advance call did.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// CompletedEvent is delivered once, after the terminal step is persisted.
type CompletedEvent struct {
	Draft       Draft
	Completion  Completion
	CompletedAt time.Time
}

// Snapshot is an immutable copy of the controller state for rendering.
type Snapshot struct {
	CurrentStep      Step
	Phase            Phase
	Draft            Draft
	Errors           ErrorMap
	IsSubmitting     bool
	IsBootstrapping  bool
	Completion       Completion
	FurthestStep     Step
	Failure          *PersistenceError
	BootstrapWarning *BootstrapError
}

type Option func(*Controller)

func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.obs = o }
}

// WithCompletionHandler registers the onWorkflowCompleted notification. It
// runs on the goroutine whose Advance finished the workflow, outside the lock.
func WithCompletionHandler(fn func(CompletedEvent)) Option {
	return func(c *Controller) { c.onComplete = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives one vendor through the onboarding steps. It is safe for
// concurrent use; the lock is never held while the store is called.
type Controller struct {
	store      StepStore
	log        logger.Logger
	obs        Observer
	onComplete func(CompletedEvent)
	now        func() time.Time

	mu               sync.Mutex
	phase            Phase
	step             Step
	draft            Draft
	errs             ErrorMap
	completion       Completion
	furthest         Step
	failure          *PersistenceError
	bootstrapWarning *BootstrapError
}

func NewController(store StepStore, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		log:        logger.NewNoOpLogger(),
		obs:        nopObserver{},
		now:        time.Now,
		phase:      PhaseUninitialized,
		step:       FirstStep,
		draft:      NewDraft(),
		errs:       ErrorMap{},
		completion: NewCompletion(),
		furthest:   FirstStep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithFields(map[string]interface{}{"component": "onboarding-controller"})
	return c
}

// commandErrLocked rejects commands outside Ready and Submitting.
func (c *Controller) commandErrLocked() error {
	switch c.phase {
	case PhaseUninitialized, PhaseBootstrapping:
		return ErrNotReady
	case PhaseCompleted:
		return ErrWorkflowCompleted
	case PhaseClosed:
		return ErrClosed
	}
	return nil
}

// Edit sets one draft field and clears its error. Changing the verification
// type clears the errors of both verification branches.
func (c *Controller) Edit(field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.commandErrLocked(); err != nil {
		return err
	}
	if err := c.draft.Set(field, value); err != nil {
		return err
	}

	delete(c.errs, field)
	if field == FieldVerificationType {
		for _, f := range gstFields {
			delete(c.errs, f)
		}
		for _, f := range manualFields {
			delete(c.errs, f)
		}
		delete(c.errs, FieldVerificationType)
	}
	c.bootstrapWarning = nil
	return nil
}

// EditByName is Edit keyed by the wire field name.
func (c *Controller) EditByName(name, value string) error {
	field, err := ParseField(name)
	if err != nil {
		return err
	}
	return c.Edit(field, value)
}

// GoToPrevious moves back one step. It does nothing on the first step or
// while a submission is in flight, and never touches entered data.
func (c *Controller) GoToPrevious() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.commandErrLocked(); err != nil {
		return err
	}
	if c.phase == PhaseSubmitting || c.step == FirstStep {
		return nil
	}
	c.step--
	c.failure = nil
	return nil
}

// Advance validates the current step, persists it and moves forward. While
// another Advance is in flight it returns OutcomeIgnored without doing
// anything. Validation failures return *ValidationError, store failures
// *PersistenceError; neither changes the step or the completion.
func (c *Controller) Advance(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if err := c.commandErrLocked(); err != nil {
		c.mu.Unlock()
		return "", err
	}
	step := c.step
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		c.log.Debug("advance ignored, submission in flight", map[string]interface{}{"step": int(step)})
		c.obs.AdvanceIgnored(step)
		return OutcomeIgnored, nil
	}

	c.failure = nil
	c.bootstrapWarning = nil
	c.errs = Validate(step, c.draft)
	if len(c.errs) > 0 {
		verr := &ValidationError{Step: step, Fields: c.errs.clone()}
		c.mu.Unlock()
		c.log.Debug("step validation failed", map[string]interface{}{
			"step":   int(step),
			"fields": len(verr.Fields),
		})
		c.obs.ValidationFailed(step, len(verr.Fields))
		return OutcomeInvalid, verr
	}

	payload, err := BuildPayload(step, c.draft)
	if err != nil {
		c.mu.Unlock()
		return OutcomeFailed, newPersistenceError(step, err)
	}
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	started := c.now()
	res, err := submit(ctx, c.store, payload)
	took := c.now().Sub(started)
	c.obs.StepSubmitted(step, took, err)

	return c.finishAdvance(step, res, err)
}

func (c *Controller) finishAdvance(step Step, res *StepResult, err error) (Outcome, error) {
	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		c.log.Debug("controller closed during submission, result discarded", map[string]interface{}{"step": int(step)})
		return OutcomeIgnored, ErrClosed
	}

	if err != nil {
		perr := newPersistenceError(step, err)
		c.failure = perr
		c.phase = PhaseReady
		c.mu.Unlock()
		c.log.Error("step submission failed", map[string]interface{}{
			"step":      int(step),
			"errorCode": string(perr.Cause.Code),
			"retryable": perr.Cause.Retryable,
			"error":     perr.Cause,
		})
		return OutcomeFailed, perr
	}

	if res != nil && res.Completion != nil {
		c.completion = ApplyCompletion(c.completion, res.Completion)
	} else {
		c.completion = MarkStepComplete(c.completion, step)
	}
	c.furthest = FurthestUnlockedStep(c.completion)

	if step < TerminalStep {
		c.step = step + 1
		c.phase = PhaseReady
		c.mu.Unlock()
		c.log.Info("step saved", map[string]interface{}{"step": int(step), "next": int(step + 1)})
		return OutcomeAdvanced, nil
	}

	c.phase = PhaseCompleted
	event := CompletedEvent{
		Draft:       c.draft,
		Completion:  c.completion.Clone(),
		CompletedAt: c.now().UTC(),
	}
	c.draft = NewDraft()
	handler := c.onComplete
	c.mu.Unlock()

	c.log.Info("onboarding completed", map[string]interface{}{"percentage": event.Completion.Percentage})
	c.obs.WorkflowCompleted()
	if handler != nil {
		handler(event)
	}
	return OutcomeCompleted, nil
}

// Close tears the controller down. In-flight results are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseClosed
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		CurrentStep:      c.step,
		Phase:            c.phase,
		Draft:            c.draft,
		Errors:           c.errs.clone(),
		IsSubmitting:     c.phase == PhaseSubmitting,
		IsBootstrapping:  c.phase == PhaseBootstrapping,
		Completion:       c.completion.Clone(),
		FurthestStep:     c.furthest,
		Failure:          c.failure,
		BootstrapWarning: c.bootstrapWarning,
	}
}
