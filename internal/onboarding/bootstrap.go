package onboarding

import (
	"context"
	"errors"
)

// Initialize loads the vendor's saved draft once per controller. A second
// call returns ErrAlreadyInitialized. The current step is always reset to
// the first step, whatever the saved completion says.
//
// A failed fetch is not fatal: the controller becomes Ready with an empty
// draft and the returned *BootstrapError is kept as a one-time warning.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case PhaseUninitialized:
	case PhaseClosed:
		c.mu.Unlock()
		return ErrClosed
	default:
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.phase = PhaseBootstrapping
	c.mu.Unlock()

	profile, err := c.store.FetchDraft(ctx)

	c.mu.Lock()
	if c.phase == PhaseClosed {
		c.mu.Unlock()
		return ErrClosed
	}

	found := false
	var bootErr *BootstrapError
	switch {
	case err == nil && profile != nil:
		found = true
		c.draft = profile.Draft.withDefaults()
		c.completion = ApplyCompletion(c.completion, profile.Completion)
	case err == nil, errors.Is(err, ErrDraftNotFound):
		err = nil
	default:
		bootErr = newBootstrapError(err)
		c.bootstrapWarning = bootErr
	}

	c.step = FirstStep
	c.furthest = FurthestUnlockedStep(c.completion)
	c.phase = PhaseReady
	furthest := c.furthest
	c.mu.Unlock()

	c.obs.BootstrapFinished(found, err)
	if bootErr != nil {
		c.log.Warn("saved draft could not be loaded, starting empty", map[string]interface{}{
			"errorCode": string(bootErr.Cause.Code),
			"error":     bootErr.Cause,
		})
		return bootErr
	}

	c.log.Info("bootstrap finished", map[string]interface{}{
		"draftFound":   found,
		"furthestStep": int(furthest),
	})
	return nil
}
