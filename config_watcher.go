package domino

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// ConfigCallback runs inside the scope a configuration watcher opens.
// It receives the current configuration value for the watched PID; when the
// PID has no value, the map is empty.
type ConfigCallback func(ctx context.Context, s *Scope, value ConfigMap) error

// ConfigWatcher binds a capsule scope to the value of one configuration
// PID. Unlike a service watcher it is always satisfied: absence of the PID
// opens the scope with an empty map rather than leaving it closed. Every
// value change stops the current scope and opens a replacement with the new
// map, in that order.
//
// ConfigWatcher is a Capsule: admit it into a scope to bind its lifetime to
// that scope. Reopens are serialized per watcher; a change arriving while a
// reopen is in flight supersedes it, and only the newest value's scope
// survives. The internal lock is never held across user callbacks.
type ConfigWatcher struct {
	store    ConfigStore
	pid      string
	pipeline pipz.Chainable[*Request]
	metrics  MetricsProvider

	mu      sync.Mutex
	started bool
	busy    bool
	pending *ConfigMap
	scope   *Scope
	sub     Subscription
}

// NewConfigWatcher creates a watcher for one configuration PID.
// Pipeline options (With*) wrap the callback.
func NewConfigWatcher(store ConfigStore, pid string, fn ConfigCallback, opts ...Option) *ConfigWatcher {
	w := &ConfigWatcher{
		store: store,
		pid:   pid,
	}
	terminal := pipz.Effect(callbackID, func(ctx context.Context, req *Request) error {
		return fn(ctx, req.Scope, req.Value)
	})
	w.pipeline = buildPipeline(terminal, opts)
	return w
}

// Metrics sets a metrics provider for scope events.
// Must be called before the watcher starts.
func (w *ConfigWatcher) Metrics(provider MetricsProvider) *ConfigWatcher {
	w.metrics = provider
	return w
}

// String returns the watcher name.
func (w *ConfigWatcher) String() string {
	return "config-watcher[" + w.pid + "]"
}

// Start subscribes to the store and synchronously opens the initial scope
// with the current value, or an empty map when the PID is absent.
// Part of the Capsule contract.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("config watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	sub, err := w.store.Listen(w.pid, func(ctx context.Context, ev ConfigEvent) {
		value := ev.Value
		if ev.Kind == ConfigDeleted || value == nil {
			value = ConfigMap{}
		}
		w.reopen(ctx, value)
	})
	if err != nil {
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
		return fmt.Errorf("listen %s: %w", w.pid, err)
	}

	value, ok, err := w.store.Get(w.pid)
	if err != nil {
		sub.Cancel()
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
		return fmt.Errorf("get %s: %w", w.pid, err)
	}
	if !ok || value == nil {
		value = ConfigMap{}
	}

	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	w.reopen(ctx, value)
	return nil
}

// Stop cancels the subscription and stops the current scope.
// Part of the Capsule contract.
func (w *ConfigWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	w.pending = nil
	sub := w.sub
	w.sub = nil
	sc := w.scope
	w.scope = nil
	w.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	if sc != nil {
		sc.Stop(ctx)
	}
	return nil
}

// reopen stops the current scope and opens a replacement with the given
// value. Exactly one reopen runs at a time; values arriving meanwhile are
// coalesced so only the newest survives.
func (w *ConfigWatcher) reopen(ctx context.Context, value ConfigMap) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	if w.busy {
		w.pending = &value
		w.mu.Unlock()
		return
	}
	w.busy = true
	w.mu.Unlock()

	for {
		w.mu.Lock()
		sc := w.scope
		w.scope = nil
		w.mu.Unlock()

		if sc != nil {
			sc.Stop(ctx)
			capitan.Emit(ctx, ConfigScopeReopened,
				KeyPID.Field(w.pid),
			)
		}

		next, err := w.openValue(ctx, value)
		if err != nil {
			capitan.Emit(ctx, WatcherCallbackFailed,
				KeyWatcher.Field(w.String()),
				KeyError.Field(err.Error()),
			)
			next = nil
		}

		w.mu.Lock()
		if !w.started {
			w.busy = false
			w.mu.Unlock()
			if next != nil {
				next.Stop(ctx)
			}
			return
		}
		if w.pending != nil {
			value = *w.pending
			w.pending = nil
			w.mu.Unlock()
			// Superseded before it was ever observed.
			if next != nil {
				next.Stop(ctx)
			}
			continue
		}
		w.scope = next
		w.busy = false
		w.mu.Unlock()
		return
	}
}

func (w *ConfigWatcher) openValue(ctx context.Context, value ConfigMap) (*Scope, error) {
	return newScope(ctx, w.metrics, func(ctx context.Context, s *Scope) error {
		req := &Request{Scope: s, PID: w.pid, Value: value}
		_, err := w.pipeline.Process(ctx, req)
		return err
	})
}
