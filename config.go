package domino

import "context"

// ConfigMap is one configuration value: a flat mapping from key to value.
// Absence of a PID yields an empty (never nil-significant) map.
type ConfigMap map[string]any

// ConfigEventKind enumerates singleton configuration notifications.
type ConfigEventKind int

const (
	// ConfigChanged indicates the value for a PID was created or replaced.
	ConfigChanged ConfigEventKind = iota

	// ConfigDeleted indicates the PID no longer has a value.
	ConfigDeleted
)

// ConfigEvent is delivered to configuration listeners.
type ConfigEvent struct {
	Kind  ConfigEventKind
	Value ConfigMap
}

// ConfigListener receives configuration change events. Delivery is
// synchronous on the goroutine mutating the store.
type ConfigListener func(ctx context.Context, ev ConfigEvent)

// FactoryEventKind enumerates factory configuration notifications.
type FactoryEventKind int

const (
	// FactoryCreated indicates a new instance appeared under the factory.
	FactoryCreated FactoryEventKind = iota

	// FactoryUpdated indicates an existing instance's value was replaced.
	FactoryUpdated

	// FactoryDeleted indicates an instance was removed.
	FactoryDeleted
)

// FactoryEvent is delivered to factory listeners.
type FactoryEvent struct {
	Kind       FactoryEventKind
	InstanceID string
	Value      ConfigMap
}

// FactoryListener receives factory configuration events.
type FactoryListener func(ctx context.Context, ev FactoryEvent)

// ConfigInstance is one factory configuration instance in a snapshot.
type ConfigInstance struct {
	InstanceID string
	Value      ConfigMap
}

// ConfigStore is the external configuration collaborator. Implementations
// own all persistence; the engine only reacts to values and events.
// MemoryConfigStore and pkg/fileconf provide embeddable implementations.
type ConfigStore interface {
	// Get returns the current value for a PID and whether it exists.
	Get(pid string) (ConfigMap, bool, error)

	// Listen subscribes to change events for one PID.
	Listen(pid string, l ConfigListener) (Subscription, error)

	// Instances returns the current snapshot of a factory's instances.
	Instances(factoryPID string) ([]ConfigInstance, error)

	// ListenFactory subscribes to Created/Updated/Deleted events for one
	// factory PID. No synthetic events are delivered for instances already
	// present; callers seed from Instances.
	ListenFactory(factoryPID string, l FactoryListener) (Subscription, error)
}
