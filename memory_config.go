package domino

import (
	"context"
	"sort"
	"strings"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemoryConfigStore is an in-process ConfigStore. Change events are
// dispatched synchronously on the goroutine performing the mutation.
// Useful for testing and for embedders without an external store.
type MemoryConfigStore struct {
	values    cmap.ConcurrentMap[string, ConfigMap]
	instances cmap.ConcurrentMap[string, ConfigMap]

	mu               sync.Mutex
	listeners        map[string]map[uint64]ConfigListener
	factoryListeners map[string]map[uint64]FactoryListener
	nextSub          uint64
}

// NewMemoryConfigStore creates an empty store.
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{
		values:           cmap.New[ConfigMap](),
		instances:        cmap.New[ConfigMap](),
		listeners:        make(map[string]map[uint64]ConfigListener),
		factoryListeners: make(map[string]map[uint64]FactoryListener),
	}
}

// Get returns the current value for a PID.
func (s *MemoryConfigStore) Get(pid string) (ConfigMap, bool, error) {
	value, ok := s.values.Get(pid)
	if !ok {
		return nil, false, nil
	}
	return cloneConfig(value), true, nil
}

// Set creates or replaces the value for a PID and notifies listeners.
func (s *MemoryConfigStore) Set(ctx context.Context, pid string, value ConfigMap) {
	s.values.Set(pid, cloneConfig(value))
	s.dispatch(ctx, pid, ConfigEvent{Kind: ConfigChanged, Value: cloneConfig(value)})
}

// Delete removes the value for a PID and notifies listeners.
// A no-op when the PID has no value.
func (s *MemoryConfigStore) Delete(ctx context.Context, pid string) {
	if _, ok := s.values.Get(pid); !ok {
		return
	}
	s.values.Remove(pid)
	s.dispatch(ctx, pid, ConfigEvent{Kind: ConfigDeleted})
}

// Listen subscribes to change events for one PID.
func (s *MemoryConfigStore) Listen(pid string, l ConfigListener) (Subscription, error) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.listeners[pid] == nil {
		s.listeners[pid] = make(map[uint64]ConfigListener)
	}
	s.listeners[pid][id] = l
	s.mu.Unlock()

	return &memorySubscription{cancel: func() {
		s.mu.Lock()
		delete(s.listeners[pid], id)
		s.mu.Unlock()
	}}, nil
}

// Instances returns the current snapshot for a factory PID, ordered by
// instance identifier.
func (s *MemoryConfigStore) Instances(factoryPID string) ([]ConfigInstance, error) {
	prefix := factoryPID + "/"
	var out []ConfigInstance
	for key, value := range s.instances.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, ConfigInstance{
			InstanceID: strings.TrimPrefix(key, prefix),
			Value:      cloneConfig(value),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out, nil
}

// SetInstance creates or replaces one factory instance and notifies
// listeners with Created or Updated accordingly.
func (s *MemoryConfigStore) SetInstance(ctx context.Context, factoryPID, instanceID string, value ConfigMap) {
	key := factoryPID + "/" + instanceID
	_, existed := s.instances.Get(key)
	s.instances.Set(key, cloneConfig(value))

	kind := FactoryCreated
	if existed {
		kind = FactoryUpdated
	}
	s.dispatchFactory(ctx, factoryPID, FactoryEvent{
		Kind:       kind,
		InstanceID: instanceID,
		Value:      cloneConfig(value),
	})
}

// DeleteInstance removes one factory instance and notifies listeners.
// A no-op when the instance does not exist.
func (s *MemoryConfigStore) DeleteInstance(ctx context.Context, factoryPID, instanceID string) {
	key := factoryPID + "/" + instanceID
	if _, ok := s.instances.Get(key); !ok {
		return
	}
	s.instances.Remove(key)
	s.dispatchFactory(ctx, factoryPID, FactoryEvent{
		Kind:       FactoryDeleted,
		InstanceID: instanceID,
	})
}

// ListenFactory subscribes to instance events for one factory PID.
func (s *MemoryConfigStore) ListenFactory(factoryPID string, l FactoryListener) (Subscription, error) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.factoryListeners[factoryPID] == nil {
		s.factoryListeners[factoryPID] = make(map[uint64]FactoryListener)
	}
	s.factoryListeners[factoryPID][id] = l
	s.mu.Unlock()

	return &memorySubscription{cancel: func() {
		s.mu.Lock()
		delete(s.factoryListeners[factoryPID], id)
		s.mu.Unlock()
	}}, nil
}

// dispatch delivers an event with the listener list lock released, so
// listener code may mutate the store or subscriptions without deadlocking.
func (s *MemoryConfigStore) dispatch(ctx context.Context, pid string, ev ConfigEvent) {
	s.mu.Lock()
	matched := make([]ConfigListener, 0, len(s.listeners[pid]))
	for _, l := range s.listeners[pid] {
		matched = append(matched, l)
	}
	s.mu.Unlock()

	for _, l := range matched {
		l(ctx, ev)
	}
}

func (s *MemoryConfigStore) dispatchFactory(ctx context.Context, factoryPID string, ev FactoryEvent) {
	s.mu.Lock()
	matched := make([]FactoryListener, 0, len(s.factoryListeners[factoryPID]))
	for _, l := range s.factoryListeners[factoryPID] {
		matched = append(matched, l)
	}
	s.mu.Unlock()

	for _, l := range matched {
		l(ctx, ev)
	}
}

func cloneConfig(value ConfigMap) ConfigMap {
	out := make(ConfigMap, len(value))
	for k, v := range value {
		out[k] = v
	}
	return out
}
