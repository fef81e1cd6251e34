package domino

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// ServiceCallback runs inside the scope a watcher opens when its condition
// is met. It receives one resolved reference per condition key, in key
// order, and registers capsules into the scope.
type ServiceCallback func(ctx context.Context, s *Scope, services []ServiceRef) error

// ModifiedCallback receives pass-through notifications for tracked
// registrations whose properties changed without the condition being lost.
// No scope churn happens for these.
type ModifiedCallback func(ctx context.Context, services []ServiceRef)

// ServiceWatcher opens a capsule scope while every one of its condition
// keys has at least one matching registration, and closes it when any key
// loses its last match. It is a Capsule: admit it into a scope to bind its
// lifetime to that scope.
//
// The watcher tracks the condition, not specific instances: for a key with
// several matching registrations, one disappearing does not close the scope
// while another remains.
//
// Transitions are serialized per watcher. The internal lock is never held
// across user callbacks or scope teardown, so user logic may synchronously
// trigger further transitions on this or related watchers without
// deadlocking.
type ServiceWatcher struct {
	registry Registry
	keys     []ServiceKey
	pipeline pipz.Chainable[*Request]

	name       string
	onModified ModifiedCallback
	metrics    MetricsProvider

	mu        sync.Mutex
	started   bool
	satisfied bool
	gen       uint64
	scope     *Scope
	present   []map[uint64]ServiceRef
	subs      []Subscription
}

// NewServiceWatcher creates a watcher over one or more condition keys.
// The callback runs inside a fresh scope each time the condition transitions
// to satisfied. Pipeline options (With*) wrap the callback; instance
// configuration uses chainable methods before the watcher starts.
func NewServiceWatcher(registry Registry, keys []ServiceKey, fn ServiceCallback, opts ...Option) *ServiceWatcher {
	w := &ServiceWatcher{
		registry: registry,
		keys:     keys,
	}
	terminal := pipz.Effect(callbackID, func(ctx context.Context, req *Request) error {
		return fn(ctx, req.Scope, req.Services)
	})
	w.pipeline = buildPipeline(terminal, opts)
	return w
}

// Name sets the watcher name used in signals and by the reporter.
// Defaults to a name derived from the condition keys.
func (w *ServiceWatcher) Name(name string) *ServiceWatcher {
	w.name = name
	return w
}

// OnModified sets a pass-through callback for modified notifications that
// do not lose the condition. Must be called before the watcher starts.
func (w *ServiceWatcher) OnModified(fn ModifiedCallback) *ServiceWatcher {
	w.onModified = fn
	return w
}

// Metrics sets a metrics provider for transition and scope events.
// Must be called before the watcher starts.
func (w *ServiceWatcher) Metrics(provider MetricsProvider) *ServiceWatcher {
	w.metrics = provider
	return w
}

// String returns the watcher name.
func (w *ServiceWatcher) String() string {
	if w.name != "" {
		return w.name
	}
	ifaces := make([]string, len(w.keys))
	for i, k := range w.keys {
		ifaces[i] = k.Interface
	}
	return "service-watcher[" + strings.Join(ifaces, ",") + "]"
}

// Satisfied reports whether the condition currently holds.
func (w *ServiceWatcher) Satisfied() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.satisfied
}

// Start subscribes the watcher to its registry and evaluates the condition
// against already-present registrations. Part of the Capsule contract.
func (w *ServiceWatcher) Start(ctx context.Context) error {
	if len(w.keys) == 0 {
		return fmt.Errorf("service watcher requires at least one condition key")
	}

	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("service watcher already started")
	}
	w.started = true
	w.present = make([]map[uint64]ServiceRef, len(w.keys))
	for i := range w.present {
		w.present[i] = make(map[uint64]ServiceRef)
	}
	w.mu.Unlock()

	subs := make([]Subscription, 0, len(w.keys))
	for i, key := range w.keys {
		idx := i
		sub, err := w.registry.Track(key.Interface, key.Filter, func(ctx context.Context, ev ServiceEvent) {
			w.handle(ctx, idx, ev)
		})
		if err != nil {
			for _, s := range subs {
				s.Cancel()
			}
			w.mu.Lock()
			w.started = false
			w.mu.Unlock()
			return fmt.Errorf("track %s: %w", key.Interface, err)
		}
		subs = append(subs, sub)
	}

	w.mu.Lock()
	w.subs = subs
	// Seed from registrations that existed before the trackers attached.
	// Events that raced in during Track merge by registration ID.
	for i, key := range w.keys {
		for _, ref := range w.registry.Lookup(key.Interface, key.Filter) {
			w.present[i][ref.ID] = ref
		}
	}
	w.transition(ctx)
	return nil
}

// Stop cancels the subscriptions and closes the condition scope if open.
// Part of the Capsule contract.
func (w *ServiceWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	w.satisfied = false
	subs := w.subs
	w.subs = nil
	sc := w.scope
	w.scope = nil
	w.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
	if sc != nil {
		sc.Stop(ctx)
	}
	return nil
}

// handle applies one tracker event and runs the resulting transition.
func (w *ServiceWatcher) handle(ctx context.Context, keyIdx int, ev ServiceEvent) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}

	switch ev.Kind {
	case ServiceAdded:
		w.present[keyIdx][ev.Ref.ID] = ev.Ref

	case ServiceModified:
		// A modified registration that newly passes the key's filter shows
		// up here without a prior Added; admit it either way.
		_, known := w.present[keyIdx][ev.Ref.ID]
		w.present[keyIdx][ev.Ref.ID] = ev.Ref
		if known && w.satisfied && w.onModified != nil {
			refs := w.resolveLocked()
			fn := w.onModified
			w.mu.Unlock()
			fn(ctx, refs)
			return
		}

	case ServiceRemoved:
		delete(w.present[keyIdx], ev.Ref.ID)
	}

	w.transition(ctx)
}

// transition commits a state change while holding w.mu and releases the
// lock before calling into user code or scope teardown. Callers must hold
// w.mu; it is unlocked on return.
func (w *ServiceWatcher) transition(ctx context.Context) {
	nowSatisfied := true
	for _, refs := range w.present {
		if len(refs) == 0 {
			nowSatisfied = false
			break
		}
	}

	switch {
	case nowSatisfied && !w.satisfied:
		w.satisfied = true
		w.gen++
		gen := w.gen
		refs := w.resolveLocked()
		w.mu.Unlock()
		w.open(ctx, refs, gen)

	case !nowSatisfied && w.satisfied:
		w.satisfied = false
		w.gen++
		sc := w.scope
		w.scope = nil
		w.mu.Unlock()
		if sc != nil {
			sc.Stop(ctx)
		}
		capitan.Emit(ctx, WatcherUnsatisfied,
			KeyWatcher.Field(w.String()),
		)
		if w.metrics != nil {
			w.metrics.OnWatcherTransition(false)
		}

	default:
		w.mu.Unlock()
	}
}

// open runs the user callback inside a new scope and commits the handle.
// gen guards the commit: any transition that happened while the callback
// ran invalidates this open, and the fresh scope is torn down instead.
func (w *ServiceWatcher) open(ctx context.Context, refs []ServiceRef, gen uint64) {
	capitan.Emit(ctx, WatcherSatisfied,
		KeyWatcher.Field(w.String()),
	)
	if w.metrics != nil {
		w.metrics.OnWatcherTransition(true)
	}

	sc, err := newScope(ctx, w.metrics, func(ctx context.Context, s *Scope) error {
		req := &Request{Scope: s, Services: refs}
		_, perr := w.pipeline.Process(ctx, req)
		return perr
	})
	if err != nil {
		// Contained to this scope attempt; the watcher stays functional
		// for future transitions.
		capitan.Emit(ctx, WatcherCallbackFailed,
			KeyWatcher.Field(w.String()),
			KeyError.Field(err.Error()),
		)
		return
	}

	w.mu.Lock()
	if !w.started || !w.satisfied || w.gen != gen {
		// The condition went away (or churned) while the callback ran.
		w.mu.Unlock()
		sc.Stop(ctx)
		return
	}
	w.scope = sc
	w.mu.Unlock()
}

// resolveLocked snapshots one reference per key, lowest registration ID
// first for determinism. Callers must hold w.mu.
func (w *ServiceWatcher) resolveLocked() []ServiceRef {
	refs := make([]ServiceRef, len(w.keys))
	for i, present := range w.present {
		var best ServiceRef
		found := false
		for id, ref := range present {
			if !found || id < best.ID {
				best = ref
				found = true
			}
		}
		refs[i] = best
	}
	return refs
}
