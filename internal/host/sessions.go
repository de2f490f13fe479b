package host

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"vendor-onboarding/internal/common/auth"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/common/metrics"
	"vendor-onboarding/internal/completion"
	"vendor-onboarding/internal/onboarding"
)

// StoreFactory builds the step store acting on behalf of one vendor. token
// returns the vendor's most recent bearer token.
type StoreFactory func(vendorID string, token func() string) onboarding.StepStore

// CompletionChecker reports vendors that already finished onboarding.
type CompletionChecker interface {
	IsCompleted(ctx context.Context, vendorID string) (bool, error)
}

// Dispatcher delivers completion records. *completion.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec completion.Record) error
}

type SessionConfig struct {
	IdleTimeout time.Duration
	// CallTimeout bounds each bootstrap and step submission. Calls are
	// detached from the HTTP request so a dropped client does not abort them.
	CallTimeout time.Duration
	// DispatchTimeout bounds the whole completion dispatch.
	DispatchTimeout time.Duration
}

type session struct {
	ctrl     *onboarding.Controller
	token    atomic.Value
	lastSeen time.Time
}

// SessionManager owns one controller per vendor.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session

	newStore   StoreFactory
	dispatcher Dispatcher
	flags      CompletionChecker
	observer   onboarding.Observer
	cfg        SessionConfig
	logger     logger.Logger
	now        func() time.Time
}

type SessionOption func(*SessionManager)

func WithDispatcher(d Dispatcher) SessionOption {
	return func(m *SessionManager) { m.dispatcher = d }
}

func WithCompletionChecker(c CompletionChecker) SessionOption {
	return func(m *SessionManager) { m.flags = c }
}

func WithSessionObserver(o onboarding.Observer) SessionOption {
	return func(m *SessionManager) { m.observer = o }
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(newStore StoreFactory, cfg SessionConfig, log logger.Logger, opts ...SessionOption) *SessionManager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = time.Minute
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	m := &SessionManager{
		sessions: make(map[string]*session),
		newStore: newStore,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "session-manager"}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AlreadyCompleted consults the durable flag. Without a checker, or when the
// flag store is down, it reports false and the vendor gets a normal session.
func (m *SessionManager) AlreadyCompleted(ctx context.Context, vendorID string) bool {
	if m.flags == nil {
		return false
	}
	done, err := m.flags.IsCompleted(ctx, vendorID)
	if err != nil {
		m.logger.Warn("completion flag lookup failed", map[string]interface{}{
			"vendorId": vendorID,
			"error":    err.Error(),
		})
		return false
	}
	return done
}

// Open returns the vendor's controller, creating and bootstrapping it on
// first use. Only the creating call runs bootstrap; concurrent callers get
// the controller while it is still Bootstrapping. Every call refreshes the
// idle timer and the bearer token used for the vendor API.
func (m *SessionManager) Open(ctx context.Context, p *auth.Principal) *onboarding.Controller {
	m.mu.Lock()
	if s, ok := m.sessions[p.VendorID]; ok {
		s.lastSeen = m.now()
		s.token.Store(p.Token)
		m.mu.Unlock()
		return s.ctrl
	}

	principal := *p
	s := &session{lastSeen: m.now()}
	s.token.Store(p.Token)
	log := m.logger.WithFields(map[string]interface{}{"vendorId": p.VendorID})
	opts := []onboarding.Option{
		onboarding.WithLogger(log),
		onboarding.WithCompletionHandler(func(ev onboarding.CompletedEvent) {
			m.completed(principal, ev)
		}),
	}
	if m.observer != nil {
		opts = append(opts, onboarding.WithObserver(m.observer))
	}
	ctrl := onboarding.NewController(m.newStore(p.VendorID, func() string { return s.token.Load().(string) }), opts...)
	s.ctrl = ctrl
	m.sessions[p.VendorID] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	if err := ctrl.Initialize(callCtx); err != nil {
		var bootErr *onboarding.BootstrapError
		if !errors.As(err, &bootErr) {
			log.Debug("bootstrap skipped", map[string]interface{}{"error": err.Error()})
		}
	}
	return ctrl
}

// Advance runs the controller's Advance detached from the request context.
func (m *SessionManager) Advance(ctx context.Context, ctrl *onboarding.Controller) (onboarding.Outcome, error) {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	return ctrl.Advance(callCtx)
}

func (m *SessionManager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.cfg.CallTimeout)
}

// completed dispatches the completion record and drops the session. It runs
// on the goroutine that finished the terminal step, outside the controller
// lock.
func (m *SessionManager) completed(p auth.Principal, ev onboarding.CompletedEvent) {
	if m.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DispatchTimeout)
		err := m.dispatcher.Dispatch(ctx, completion.NewRecord(p.VendorID, p.Email, ev))
		cancel()
		if err != nil {
			m.logger.Error("completion dispatch had failures", map[string]interface{}{
				"vendorId": p.VendorID,
				"error":    err.Error(),
			})
		}
	}
	m.drop(p.VendorID)
}

func (m *SessionManager) drop(vendorID string) {
	m.mu.Lock()
	delete(m.sessions, vendorID)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many it closed.
func (m *SessionManager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var expired []*onboarding.Controller
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s.ctrl)
			delete(m.sessions, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Close()
	}
	if len(expired) > 0 {
		m.logger.Info("idle sessions closed", map[string]interface{}{"count": len(expired)})
	}
	return len(expired)
}

// RunSweeper sweeps every interval until ctx is done.
func (m *SessionManager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll closes every session. Used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	for _, s := range sessions {
		s.ctrl.Close()
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
