package domino

import (
	"context"
	"sync"
)

// RegistrationCapsule is a leaf capsule whose start registers an object
// with a registry and whose stop unregisters it. It is the pattern every
// higher-level "provide as a service" convenience is built on.
type RegistrationCapsule struct {
	registry   Registry
	instance   any
	interfaces []string
	props      Properties

	mu     sync.Mutex
	handle Registration
}

// NewRegistrationCapsule creates a capsule that registers instance under
// the given interface identifiers with an optional property map.
func NewRegistrationCapsule(registry Registry, instance any, interfaces []string, props Properties) *RegistrationCapsule {
	return &RegistrationCapsule{
		registry:   registry,
		instance:   instance,
		interfaces: interfaces,
		props:      props,
	}
}

// Start registers the instance and keeps the registration handle.
func (c *RegistrationCapsule) Start(ctx context.Context) error {
	handle, err := c.registry.Register(ctx, c.instance, c.interfaces, c.props)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()
	return nil
}

// Stop unregisters the instance. Unregistering a registration already gone
// from the registry is a no-op.
func (c *RegistrationCapsule) Stop(ctx context.Context) error {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()

	if handle == nil {
		return nil
	}
	return handle.Unregister(ctx)
}

// Registered reports whether the capsule currently holds a registration.
func (c *RegistrationCapsule) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// ProvideService registers instance as a service for the lifetime of the
// scope: the registration is admitted as a capsule and reversed when the
// scope stops.
func ProvideService(ctx context.Context, s *Scope, registry Registry, instance any, interfaces []string, props Properties) (*RegistrationCapsule, error) {
	c := NewRegistrationCapsule(registry, instance, interfaces, props)
	if err := s.Add(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
