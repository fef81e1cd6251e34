package domino

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// FactoryCallback runs inside the scope a factory tracker opens for one
// configuration instance. It receives the instance identifier and its
// current value.
type FactoryCallback func(ctx context.Context, s *Scope, instanceID string, value ConfigMap) error

// factoryOp is one pending lifecycle operation for an instance.
type factoryOp struct {
	kind  FactoryEventKind
	value ConfigMap
}

// factoryInstance is the tracked state of one configuration instance.
type factoryInstance struct {
	scope   *Scope
	busy    bool
	pending *factoryOp
}

// FactoryTracker manages an unbounded set of independently lifecycled
// scopes, one per factory configuration instance. Creation opens a scope
// for the new instance, an update stops the old scope before opening its
// replacement, deletion stops the scope and forgets the instance.
//
// FactoryTracker is a Capsule: admit it into a scope to bind its lifetime
// to that scope; stopping it stops every remaining instance scope. Each
// instance's operations are serialized independently, and the internal
// lock is never held across user callbacks.
type FactoryTracker struct {
	store      ConfigStore
	factoryPID string
	pipeline   pipz.Chainable[*Request]
	metrics    MetricsProvider

	mu        sync.Mutex
	started   bool
	sub       Subscription
	instances map[string]*factoryInstance
}

// NewFactoryTracker creates a tracker for one factory PID.
// Pipeline options (With*) wrap the callback.
func NewFactoryTracker(store ConfigStore, factoryPID string, fn FactoryCallback, opts ...Option) *FactoryTracker {
	t := &FactoryTracker{
		store:      store,
		factoryPID: factoryPID,
	}
	terminal := pipz.Effect(callbackID, func(ctx context.Context, req *Request) error {
		return fn(ctx, req.Scope, req.InstanceID, req.Value)
	})
	t.pipeline = buildPipeline(terminal, opts)
	return t
}

// Metrics sets a metrics provider for scope events.
// Must be called before the tracker starts.
func (t *FactoryTracker) Metrics(provider MetricsProvider) *FactoryTracker {
	t.metrics = provider
	return t
}

// String returns the tracker name.
func (t *FactoryTracker) String() string {
	return "factory-tracker[" + t.factoryPID + "]"
}

// Instances returns the identifiers with a currently open scope.
func (t *FactoryTracker) Instances() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.instances))
	for id, inst := range t.instances {
		if inst.scope != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Start subscribes to the store and opens a scope for every instance in
// the initial snapshot. Part of the Capsule contract.
func (t *FactoryTracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("factory tracker already started")
	}
	t.started = true
	t.instances = make(map[string]*factoryInstance)
	t.mu.Unlock()

	sub, err := t.store.ListenFactory(t.factoryPID, func(ctx context.Context, ev FactoryEvent) {
		t.apply(ctx, ev.InstanceID, factoryOp{kind: ev.Kind, value: ev.Value})
	})
	if err != nil {
		t.mu.Lock()
		t.started = false
		t.mu.Unlock()
		return fmt.Errorf("listen factory %s: %w", t.factoryPID, err)
	}

	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()

	snapshot, err := t.store.Instances(t.factoryPID)
	if err != nil {
		t.Stop(ctx)
		return fmt.Errorf("instances %s: %w", t.factoryPID, err)
	}
	for _, inst := range snapshot {
		t.apply(ctx, inst.InstanceID, factoryOp{kind: FactoryCreated, value: inst.Value})
	}
	return nil
}

// Stop cancels the subscription and stops every remaining instance scope.
// Order across distinct instances is unspecified; each instance's own scope
// tears down in normal reverse capsule order. Part of the Capsule contract.
func (t *FactoryTracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	sub := t.sub
	t.sub = nil
	scopes := make([]*Scope, 0, len(t.instances))
	for _, inst := range t.instances {
		if inst.scope != nil {
			scopes = append(scopes, inst.scope)
			inst.scope = nil
		}
		inst.pending = nil
	}
	t.instances = nil
	t.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	for _, sc := range scopes {
		sc.Stop(ctx)
	}
	return nil
}

// apply runs one instance operation, serialized per instance identifier.
// Operations arriving while one is in flight are coalesced: only the
// newest survives, and a superseded scope never outlives it.
func (t *FactoryTracker) apply(ctx context.Context, id string, op factoryOp) {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	inst := t.instances[id]
	if inst == nil {
		if op.kind == FactoryDeleted {
			t.mu.Unlock()
			return
		}
		inst = &factoryInstance{}
		t.instances[id] = inst
	}
	if inst.busy {
		inst.pending = &op
		t.mu.Unlock()
		return
	}
	inst.busy = true
	t.mu.Unlock()

	for {
		t.mu.Lock()
		sc := inst.scope
		inst.scope = nil
		t.mu.Unlock()

		if sc != nil {
			sc.Stop(ctx)
		}

		var next *Scope
		if op.kind != FactoryDeleted {
			opened, err := t.openInstance(ctx, id, op.value)
			if err != nil {
				capitan.Emit(ctx, WatcherCallbackFailed,
					KeyWatcher.Field(t.String()),
					KeyInstanceID.Field(id),
					KeyError.Field(err.Error()),
				)
			} else {
				next = opened
			}
		}

		t.mu.Lock()
		if !t.started {
			inst.busy = false
			t.mu.Unlock()
			if next != nil {
				next.Stop(ctx)
			}
			return
		}
		if inst.pending != nil {
			op = *inst.pending
			inst.pending = nil
			t.mu.Unlock()
			if next != nil {
				next.Stop(ctx)
			}
			continue
		}
		if next == nil {
			delete(t.instances, id)
		} else {
			inst.scope = next
		}
		inst.busy = false
		t.mu.Unlock()

		if next != nil || op.kind == FactoryDeleted {
			t.emit(ctx, id, op.kind)
		}
		return
	}
}

func (t *FactoryTracker) emit(ctx context.Context, id string, kind FactoryEventKind) {
	var sig = FactoryInstanceCreated
	switch kind {
	case FactoryUpdated:
		sig = FactoryInstanceUpdated
	case FactoryDeleted:
		sig = FactoryInstanceDeleted
	}
	capitan.Emit(ctx, sig,
		KeyPID.Field(t.factoryPID),
		KeyInstanceID.Field(id),
	)
}

func (t *FactoryTracker) openInstance(ctx context.Context, id string, value ConfigMap) (*Scope, error) {
	if value == nil {
		value = ConfigMap{}
	}
	return newScope(ctx, t.metrics, func(ctx context.Context, s *Scope) error {
		req := &Request{Scope: s, PID: t.factoryPID, InstanceID: id, Value: value}
		_, err := t.pipeline.Process(ctx, req)
		return err
	})
}
