package domino

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemoryRegistry is an in-process Registry. Events are dispatched
// synchronously on the goroutine performing the mutation, which is the
// delivery model the watchers are specified against. Useful for testing
// and for embedders that do not have an external registry.
type MemoryRegistry struct {
	nextID atomic.Uint64
	regs   cmap.ConcurrentMap[string, *memoryRegistration]

	mu       sync.Mutex
	trackers map[uint64]*memoryTracker
	nextSub  uint64
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		regs:     cmap.New[*memoryRegistration](),
		trackers: make(map[uint64]*memoryTracker),
	}
}

type memoryRegistration struct {
	registry   *MemoryRegistry
	id         uint64
	instance   any
	interfaces []string

	mu           sync.Mutex
	props        Properties
	unregistered bool
}

type memoryTracker struct {
	iface    string
	filter   Filter
	listener ServiceListener
}

// Register publishes an instance under the given interface identifiers.
func (r *MemoryRegistry) Register(ctx context.Context, instance any, interfaces []string, props Properties) (Registration, error) {
	rec := &memoryRegistration{
		registry:   r,
		id:         r.nextID.Add(1),
		instance:   instance,
		interfaces: append([]string(nil), interfaces...),
		props:      cloneProperties(props),
	}
	r.regs.Set(regKey(rec.id), rec)
	r.dispatch(ctx, rec, ServiceAdded)
	return rec, nil
}

// Unregister removes the registration. Idempotent: a second call, or a call
// after the registration was removed externally, is a no-op.
func (rec *memoryRegistration) Unregister(ctx context.Context) error {
	rec.mu.Lock()
	if rec.unregistered {
		rec.mu.Unlock()
		return nil
	}
	rec.unregistered = true
	rec.mu.Unlock()

	rec.registry.regs.Remove(regKey(rec.id))
	rec.registry.dispatch(ctx, rec, ServiceRemoved)
	return nil
}

// SetProperties replaces the registration's property map and notifies
// trackers with a Modified event.
func (rec *memoryRegistration) SetProperties(ctx context.Context, props Properties) {
	rec.mu.Lock()
	if rec.unregistered {
		rec.mu.Unlock()
		return
	}
	rec.props = cloneProperties(props)
	rec.mu.Unlock()

	rec.registry.dispatch(ctx, rec, ServiceModified)
}

func (rec *memoryRegistration) ref() ServiceRef {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return ServiceRef{ID: rec.id, Instance: rec.instance, Properties: cloneProperties(rec.props)}
}

func (rec *memoryRegistration) provides(iface string) bool {
	for _, i := range rec.interfaces {
		if i == iface {
			return true
		}
	}
	return false
}

// Lookup returns the current references for an interface, lowest
// registration ID first.
func (r *MemoryRegistry) Lookup(iface string, filter Filter) []ServiceRef {
	var refs []ServiceRef
	for _, rec := range r.regs.Items() {
		if !rec.provides(iface) {
			continue
		}
		ref := rec.ref()
		if filter != nil && !filter(ref.Properties) {
			continue
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// Track subscribes a listener to events for an interface. No synthetic
// events are delivered for registrations already present; seed from Lookup.
func (r *MemoryRegistry) Track(iface string, filter Filter, l ServiceListener) (Subscription, error) {
	r.mu.Lock()
	r.nextSub++
	id := r.nextSub
	r.trackers[id] = &memoryTracker{iface: iface, filter: filter, listener: l}
	r.mu.Unlock()

	return &memorySubscription{cancel: func() {
		r.mu.Lock()
		delete(r.trackers, id)
		r.mu.Unlock()
	}}, nil
}

// dispatch delivers an event to every matching tracker. The tracker list
// lock is released before listeners run, so listener code may register,
// unregister, or track without deadlocking.
func (r *MemoryRegistry) dispatch(ctx context.Context, rec *memoryRegistration, kind ServiceEventKind) {
	ref := rec.ref()

	r.mu.Lock()
	matched := make([]ServiceListener, 0, len(r.trackers))
	for _, t := range r.trackers {
		if !rec.provides(t.iface) {
			continue
		}
		if t.filter != nil && !t.filter(ref.Properties) {
			// A modified registration may stop matching a filter; the
			// tracker sees that as a removal.
			if kind == ServiceModified {
				matched = append(matched, removalListener(t.listener))
			}
			continue
		}
		matched = append(matched, t.listener)
	}
	r.mu.Unlock()

	ev := ServiceEvent{Kind: kind, Ref: ref}
	for _, l := range matched {
		l(ctx, ev)
	}
}

func removalListener(l ServiceListener) ServiceListener {
	return func(ctx context.Context, ev ServiceEvent) {
		ev.Kind = ServiceRemoved
		l(ctx, ev)
	}
}

func regKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func cloneProperties(props Properties) Properties {
	out := make(Properties, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// memorySubscription cancels at most once.
type memorySubscription struct {
	once   sync.Once
	cancel func()
}

func (s *memorySubscription) Cancel() {
	s.once.Do(s.cancel)
}
