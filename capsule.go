package domino

import "context"

// Capsule is the minimal unit of reversible behavior: an operation that can
// be started and later stopped exactly once.
//
// Start brings the represented behavior into effect. Stop reverses it.
// A Scope guarantees it calls Stop only on capsules whose Start returned
// nil, and at most once per capsule.
type Capsule interface {
	// Start performs the side effects that bring the behavior into effect.
	// Returning an error aborts admission of this capsule only.
	Start(ctx context.Context) error

	// Stop reverses the effects of Start. Errors are reported through
	// signals during scope teardown, never propagated to other capsules.
	Stop(ctx context.Context) error
}

// funcCapsule adapts a pair of functions to the Capsule interface.
type funcCapsule struct {
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (c *funcCapsule) Start(ctx context.Context) error {
	if c.start == nil {
		return nil
	}
	return c.start(ctx)
}

func (c *funcCapsule) Stop(ctx context.Context) error {
	if c.stop == nil {
		return nil
	}
	return c.stop(ctx)
}

// NewCapsule creates a Capsule from start and stop functions.
// Either function may be nil, in which case that phase is a no-op.
func NewCapsule(start, stop func(ctx context.Context) error) Capsule {
	return &funcCapsule{start: start, stop: stop}
}

// OnStop creates a Capsule whose start is a no-op and whose stop runs the
// given function. Useful for registering cleanup for a resource acquired
// before the capsule was admitted.
func OnStop(stop func(ctx context.Context) error) Capsule {
	return &funcCapsule{stop: stop}
}
