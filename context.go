package domino

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// CapsuleContext is the per-activation-unit entry point of the engine.
// It owns the root scope: Activate opens it and runs the unit's top-level
// logic inside it, Deactivate cascades a stop through everything the unit
// ever registered.
//
// Instance configuration uses chainable methods before Activate.
type CapsuleContext struct {
	clock          clockz.Clock
	metrics        MetricsProvider
	reportInterval time.Duration

	mu         sync.Mutex
	root       *Scope
	reporter   *Reporter
	activating bool
}

// NewCapsuleContext creates an inactive CapsuleContext.
func NewCapsuleContext() *CapsuleContext {
	return &CapsuleContext{clock: clockz.RealClock}
}

// Metrics sets a metrics provider for observability integration. The
// provider is inherited by the root scope and every child opened from it.
// Must be called before Activate.
func (cc *CapsuleContext) Metrics(provider MetricsProvider) *CapsuleContext {
	cc.metrics = provider
	return cc
}

// Clock sets a custom clock, used by the unsatisfied-condition reporter.
// Use clockz.FakeClock for deterministic tests. Must be called before
// Activate.
func (cc *CapsuleContext) Clock(clock clockz.Clock) *CapsuleContext {
	cc.clock = clock
	return cc
}

// ReportInterval enables a background reporter that periodically emits the
// ReporterUnsatisfied signal naming tracked conditions that are currently
// unsatisfied. The reporter starts with Activate and stops with Deactivate.
// Zero (the default) disables it. Must be called before Activate.
func (cc *CapsuleContext) ReportInterval(d time.Duration) *CapsuleContext {
	cc.reportInterval = d
	return cc
}

// Activate opens the root scope and runs fn inside it. If fn fails, every
// capsule it already admitted is rolled back in reverse order and the error
// is returned to the activation host; the context stays inactive.
func (cc *CapsuleContext) Activate(ctx context.Context, fn func(ctx context.Context, s *Scope) error) error {
	cc.mu.Lock()
	if cc.root != nil || cc.activating {
		cc.mu.Unlock()
		return ErrAlreadyActive
	}
	cc.activating = true
	if cc.reportInterval > 0 {
		cc.reporter = NewReporter(cc.reportInterval).Clock(cc.clock)
	}
	reporter := cc.reporter
	cc.mu.Unlock()

	root, err := newScope(ctx, cc.metrics, func(ctx context.Context, s *Scope) error {
		if reporter != nil {
			if err := s.Add(ctx, reporter); err != nil {
				return err
			}
		}
		if fn == nil {
			return nil
		}
		return fn(ctx, s)
	})

	cc.mu.Lock()
	cc.activating = false
	if err != nil {
		cc.reporter = nil
		cc.mu.Unlock()
		return err
	}
	cc.root = root
	cc.mu.Unlock()

	capitan.Emit(ctx, ContextActivated)
	return nil
}

// Deactivate stops the root scope, cascading through every nested scope and
// capsule. Idempotent; a no-op when the context is not active.
func (cc *CapsuleContext) Deactivate(ctx context.Context) {
	cc.mu.Lock()
	root := cc.root
	cc.root = nil
	cc.reporter = nil
	cc.mu.Unlock()

	if root == nil {
		return
	}
	root.Stop(ctx)
	capitan.Emit(ctx, ContextDeactivated)
}

// Active reports whether the root scope is open.
func (cc *CapsuleContext) Active() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.root != nil
}

// Root returns the root scope handle, or nil when inactive.
func (cc *CapsuleContext) Root() *Scope {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.root
}

// Reporter returns the background reporter, or nil when ReportInterval was
// not configured or the context is inactive. Watchers are registered with
// it via Reporter.Track.
func (cc *CapsuleContext) Reporter() *Reporter {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.reporter
}

// AddCapsule registers a capsule into the root scope.
// Returns ErrNoActiveScope when the context is not active.
func (cc *CapsuleContext) AddCapsule(ctx context.Context, c Capsule) error {
	cc.mu.Lock()
	root := cc.root
	cc.mu.Unlock()

	if root == nil {
		return ErrNoActiveScope
	}
	return root.Add(ctx, c)
}
