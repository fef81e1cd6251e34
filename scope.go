package domino

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// Scope is an ordered container of capsules representing one nesting level.
// Capsules are started synchronously on admission and stopped in reverse
// admission order when the scope stops. A nested scope is admitted into its
// parent as just another capsule, so a parent stop cascades depth-first
// through every child before moving to the preceding sibling.
//
// A Scope is never reused after it stops; reopening means creating a new
// Scope.
type Scope struct {
	mu         sync.Mutex
	capsules   []Capsule
	stopping   bool
	terminated bool
	metrics    MetricsProvider
}

// NewScope creates a detached scope, runs fn inside it, and returns the
// scope handle. fn receives the scope and registers capsules into it via
// Add or opens children via NewChild.
//
// If fn returns an error, every capsule already admitted is stopped in
// reverse order and the error is returned: no half-open scope survives a
// failure of its own initialization logic.
func NewScope(ctx context.Context, fn func(ctx context.Context, s *Scope) error) (*Scope, error) {
	return newScope(ctx, nil, fn)
}

func newScope(ctx context.Context, metrics MetricsProvider, fn func(ctx context.Context, s *Scope) error) (*Scope, error) {
	s := &Scope{metrics: metrics}

	capitan.Emit(ctx, ScopeOpened)
	if metrics != nil {
		metrics.OnScopeOpened()
	}

	if fn != nil {
		if err := fn(ctx, s); err != nil {
			s.Stop(ctx)
			return nil, err
		}
	}
	return s, nil
}

// Add starts the capsule and, on success, admits it into the scope.
// On failure the capsule is not admitted and a *StartError is returned to
// the code currently executing inside this scope. Adding to a terminated
// (or currently stopping) scope fails with ErrScopeTerminated.
func (s *Scope) Add(ctx context.Context, c Capsule) error {
	s.mu.Lock()
	if s.stopping || s.terminated {
		s.mu.Unlock()
		return ErrScopeTerminated
	}
	s.mu.Unlock()

	// Start outside the lock: user start logic may re-enter this scope.
	if err := c.Start(ctx); err != nil {
		capitan.Emit(ctx, CapsuleStartFailed,
			KeyError.Field(err.Error()),
		)
		if s.metrics != nil {
			s.metrics.OnCapsuleStartFailure()
		}
		return &StartError{Err: err}
	}

	s.mu.Lock()
	if s.stopping || s.terminated {
		s.mu.Unlock()
		// The scope went away while the capsule was starting. Undo it.
		s.stopCapsule(ctx, c)
		return ErrScopeTerminated
	}
	s.capsules = append(s.capsules, c)
	s.mu.Unlock()
	return nil
}

// NewChild opens a nested scope, runs fn inside it, and admits it into this
// scope so that stopping the parent cascades into the child. The returned
// handle may be used to stop the child earlier; the parent's own stop is
// then a no-op for it.
func (s *Scope) NewChild(ctx context.Context, fn func(ctx context.Context, s *Scope) error) (*Scope, error) {
	child, err := newScope(ctx, s.metrics, fn)
	if err != nil {
		return nil, err
	}
	if err := s.Add(ctx, child.asCapsule()); err != nil {
		child.Stop(ctx)
		return nil, err
	}
	return child, nil
}

// Stop tears the scope down: every admitted capsule is stopped in the exact
// reverse of admission order. A capsule stop failure is reported through the
// CapsuleStopFailed signal and teardown continues with the remaining
// capsules. Stop is idempotent; a second call is a no-op.
func (s *Scope) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopping || s.terminated {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	capsules := s.capsules
	s.capsules = nil
	s.mu.Unlock()

	for i := len(capsules) - 1; i >= 0; i-- {
		s.stopCapsule(ctx, capsules[i])
	}

	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()

	capitan.Emit(ctx, ScopeClosed,
		KeyCapsules.Field(len(capsules)),
	)
	if s.metrics != nil {
		s.metrics.OnScopeClosed(len(capsules))
	}
}

// stopCapsule stops one capsule, containing any failure to a signal.
func (s *Scope) stopCapsule(ctx context.Context, c Capsule) {
	if err := c.Stop(ctx); err != nil {
		capitan.Emit(ctx, CapsuleStopFailed,
			KeyError.Field(err.Error()),
		)
		if s.metrics != nil {
			s.metrics.OnCapsuleStopFailure()
		}
	}
}

// Terminated reports whether the scope has fully stopped. It stays false
// while capsule stops are still in flight.
func (s *Scope) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Len returns the number of currently admitted capsules.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.capsules)
}

// asCapsule wraps the scope as a capsule whose stop cascades into it.
func (s *Scope) asCapsule() Capsule {
	return OnStop(func(ctx context.Context) error {
		s.Stop(ctx)
		return nil
	})
}
