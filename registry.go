package domino

import "context"

// Properties is the property map attached to a service registration.
type Properties map[string]any

// Filter is a predicate evaluated against candidate service properties
// before they count toward a watcher's condition. A nil Filter matches
// everything.
type Filter func(props Properties) bool

// ServiceKey addresses one watched service interface, optionally narrowed
// by a Filter. Interfaces are identified by explicit string tags attached
// at registration and query time; the engine performs no type reflection.
type ServiceKey struct {
	Interface string
	Filter    Filter
}

// Key creates a ServiceKey for an interface identifier without a filter.
func Key(iface string) ServiceKey {
	return ServiceKey{Interface: iface}
}

// FilteredKey creates a ServiceKey narrowed by a property predicate.
func FilteredKey(iface string, filter Filter) ServiceKey {
	return ServiceKey{Interface: iface, Filter: filter}
}

// ServiceRef is one resolved service reference.
type ServiceRef struct {
	// ID identifies the registration the reference came from. Stable for
	// the lifetime of the registration.
	ID uint64

	// Instance is the registered object.
	Instance any

	// Properties is the property map the object was registered with.
	Properties Properties
}

// ServiceEventKind enumerates tracker notifications.
type ServiceEventKind int

const (
	// ServiceAdded indicates a matching registration appeared.
	ServiceAdded ServiceEventKind = iota

	// ServiceModified indicates the properties of a tracked registration
	// changed without the registration going away.
	ServiceModified

	// ServiceRemoved indicates a tracked registration disappeared.
	ServiceRemoved
)

// ServiceEvent is delivered to tracker listeners. Delivery is synchronous
// on whatever goroutine mutates the registry.
type ServiceEvent struct {
	Kind ServiceEventKind
	Ref  ServiceRef
}

// ServiceListener receives tracker events.
type ServiceListener func(ctx context.Context, ev ServiceEvent)

// Registration is the handle returned by Register; Unregister reverses it.
type Registration interface {
	Unregister(ctx context.Context) error
}

// Subscription is the handle for an active listener; Cancel detaches it.
type Subscription interface {
	Cancel()
}

// Registry is the external service registry collaborator. Implementations
// are outside the engine; MemoryRegistry provides an embeddable one.
type Registry interface {
	// Register publishes an instance under one or more interface
	// identifiers with an optional property map.
	Register(ctx context.Context, instance any, interfaces []string, props Properties) (Registration, error)

	// Lookup returns the current references for an interface, narrowed by
	// the optional filter.
	Lookup(iface string, filter Filter) []ServiceRef

	// Track subscribes a listener to Added/Modified/Removed events for an
	// interface. The listener sees no synthetic events for registrations
	// that existed before Track; callers seed from Lookup.
	Track(iface string, filter Filter, l ServiceListener) (Subscription, error)
}
