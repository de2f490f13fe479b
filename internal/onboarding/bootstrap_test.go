package onboarding

import (
	"context"
	"errors"
	"testing"

	apperrors "vendor-onboarding/internal/common/errors"
	"vendor-onboarding/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInitialize_SeedsDraftButStartsAtFirstStep(t *testing.T) {
	store := &mockStore{}
	saved := &SavedProfile{
		Draft: Draft{VendorType: VendorTypeRetailer, BusinessName: "Acme Traders"},
		Completion: &Completion{
			Steps:      map[Step]bool{1: true, 2: true, 3: false},
			Percentage: 66.7,
		},
	}
	store.On("FetchDraft", mock.Anything).Return(saved, nil).Once()

	c := NewController(store, WithLogger(logger.NewTestLogger(t)))
	require.NoError(t, c.Initialize(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, PhaseReady, snap.Phase)
	assert.Equal(t, StepVendorType, snap.CurrentStep)
	assert.Equal(t, StepVerification, snap.FurthestStep)
	assert.Equal(t, VendorTypeRetailer, snap.Draft.VendorType)
	assert.Equal(t, "Acme Traders", snap.Draft.BusinessName)
	assert.Equal(t, VerificationGST, snap.Draft.VerificationType, "absent fields fall back to defaults")
	assert.Equal(t, 66.7, snap.Completion.Percentage)
	assert.True(t, snap.Completion.Done(StepBusinessInfo))
	assert.Nil(t, snap.BootstrapWarning)
}

func TestInitialize_NotFoundStartsEmpty(t *testing.T) {
	store := &mockStore{}
	store.On("FetchDraft", mock.Anything).Return(nil, ErrDraftNotFound).Once()

	c := NewController(store)
	require.NoError(t, c.Initialize(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, NewDraft(), snap.Draft)
	assert.Equal(t, StepVendorType, snap.CurrentStep)
	assert.Nil(t, snap.BootstrapWarning)
}

func TestInitialize_FetchFailureIsNonFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode apperrors.ErrorCode
	}{
		{"timeout", context.DeadlineExceeded, apperrors.ErrCodeVendorAPITimeout},
		{"server error", apperrors.NewVendorAPIServerError(500, "boom"), apperrors.ErrCodeVendorAPIServerError},
		{"unclassified", errors.New("decode failed"), apperrors.ErrCodeDraftFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			store.On("FetchDraft", mock.Anything).Return(nil, tt.err).Once()

			c := NewController(store, WithLogger(logger.NewTestLogger(t)))
			err := c.Initialize(context.Background())

			var bootErr *BootstrapError
			require.ErrorAs(t, err, &bootErr)
			assert.Equal(t, tt.wantCode, bootErr.Cause.Code)

			snap := c.Snapshot()
			assert.Equal(t, PhaseReady, snap.Phase)
			assert.Equal(t, NewDraft(), snap.Draft)
			assert.Same(t, bootErr, snap.BootstrapWarning)

			require.NoError(t, c.Edit(FieldVendorType, VendorTypeWholesaler))
			assert.Nil(t, c.Snapshot().BootstrapWarning, "warning is shown once")
		})
	}
}

// fetchGate blocks FetchDraft until released.
type fetchGate struct {
	*blockingStore
	fetching chan struct{}
	proceed  chan struct{}
}

func (f *fetchGate) FetchDraft(context.Context) (*SavedProfile, error) {
	close(f.fetching)
	<-f.proceed
	return nil, ErrDraftNotFound
}

func TestInitialize_CommandsRejectedWhileBootstrapping(t *testing.T) {
	store := &fetchGate{
		blockingStore: newBlockingStore(),
		fetching:      make(chan struct{}),
		proceed:       make(chan struct{}),
	}
	c := NewController(store)

	done := make(chan error, 1)
	go func() { done <- c.Initialize(context.Background()) }()
	<-store.fetching

	snap := c.Snapshot()
	assert.True(t, snap.IsBootstrapping)
	assert.Equal(t, PhaseBootstrapping, snap.Phase)
	assert.ErrorIs(t, c.Edit(FieldCity, "Pune"), ErrNotReady)
	_, err := c.Advance(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, c.Initialize(context.Background()), ErrAlreadyInitialized)

	close(store.proceed)
	require.NoError(t, <-done)
	assert.False(t, c.Snapshot().IsBootstrapping)
}

func TestInitialize_ClosedDuringFetchDiscardsResult(t *testing.T) {
	store := &fetchGate{
		blockingStore: newBlockingStore(),
		fetching:      make(chan struct{}),
		proceed:       make(chan struct{}),
	}
	c := NewController(store)

	done := make(chan error, 1)
	go func() { done <- c.Initialize(context.Background()) }()
	<-store.fetching
	c.Close()
	close(store.proceed)

	assert.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, PhaseClosed, c.Phase())
}
