package domino

import (
	"errors"
	"fmt"
)

// Sentinel errors for scope and context misuse.
var (
	// ErrScopeTerminated is returned by Scope.Add after the scope stopped.
	// A terminated scope is never reused; reopening means a new scope.
	ErrScopeTerminated = errors.New("scope already terminated")

	// ErrNoActiveScope is returned by CapsuleContext.AddCapsule when the
	// context has not been activated. This is a programming error.
	ErrNoActiveScope = errors.New("no active scope")

	// ErrAlreadyActive is returned by Activate when the context already
	// holds an open root scope.
	ErrAlreadyActive = errors.New("context already active")
)

// StartError wraps a capsule Start failure. The failing capsule was not
// admitted. Returning it from a scope's initialization function rolls back
// the capsules admitted earlier, in reverse order.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("capsule start failed: %v", e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
