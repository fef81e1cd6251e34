// Package fileconf provides a domino.ConfigStore backed by a directory of
// configuration files, using fsnotify to deliver change events.
//
// Layout: <dir>/<pid>.json (or .yaml/.yml) holds a singleton
// configuration; <dir>/<factoryPID>/<instanceID>.json holds one factory
// configuration instance. Every file decodes to a flat map.
package fileconf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/woq-blended/domino"
)

// Store watches a directory tree of configuration files.
// Store is a domino.Capsule: admit it into a scope, or call Start/Stop
// directly. Events are delivered on the Store's watch goroutine.
type Store struct {
	dir string

	mu               sync.Mutex
	started          bool
	watcher          *fsnotify.Watcher
	done             chan struct{}
	known            map[string]bool
	listeners        map[string]map[uint64]domino.ConfigListener
	factoryListeners map[string]map[uint64]domino.FactoryListener
	nextSub          uint64
}

// New creates a Store over the given directory.
func New(dir string) *Store {
	return &Store{
		dir:              dir,
		known:            make(map[string]bool),
		listeners:        make(map[string]map[uint64]domino.ConfigListener),
		factoryListeners: make(map[string]map[uint64]domino.FactoryListener),
	}
}

// Start begins watching the directory and its factory subdirectories.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("fileconf store already started")
	}
	s.started = true
	s.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	// Watch existing factory subdirectories and remember existing files so
	// later writes can be told apart from creations.
	entries, _ := os.ReadDir(s.dir)
	for _, entry := range entries {
		if entry.IsDir() {
			_ = watcher.Add(filepath.Join(s.dir, entry.Name()))
			sub, _ := os.ReadDir(filepath.Join(s.dir, entry.Name()))
			for _, f := range sub {
				if !f.IsDir() && codecFor(f.Name()) != nil {
					s.known[filepath.Join(s.dir, entry.Name(), f.Name())] = true
				}
			}
			continue
		}
		if codecFor(entry.Name()) != nil {
			s.known[filepath.Join(s.dir, entry.Name())] = true
		}
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.watcher = watcher
	s.done = done
	s.mu.Unlock()

	go s.watch(ctx, watcher, done)
	return nil
}

// Stop ends the watch goroutine and closes the fsnotify watcher.
func (s *Store) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	watcher := s.watcher
	done := s.done
	s.watcher = nil
	s.done = nil
	s.mu.Unlock()

	close(done)
	return watcher.Close()
}

// Get reads and decodes the current value for a PID.
func (s *Store) Get(pid string) (domino.ConfigMap, bool, error) {
	path, codec := s.resolve(s.dir, pid)
	if path == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	value, err := domino.DecodeConfig(codec, data)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return value, true, nil
}

// Listen subscribes to change events for one PID.
func (s *Store) Listen(pid string, l domino.ConfigListener) (domino.Subscription, error) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.listeners[pid] == nil {
		s.listeners[pid] = make(map[uint64]domino.ConfigListener)
	}
	s.listeners[pid][id] = l
	s.mu.Unlock()

	return subscription(func() {
		s.mu.Lock()
		delete(s.listeners[pid], id)
		s.mu.Unlock()
	}), nil
}

// Instances returns the decoded snapshot of a factory's instance files.
func (s *Store) Instances(factoryPID string) ([]domino.ConfigInstance, error) {
	dir := filepath.Join(s.dir, factoryPID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []domino.ConfigInstance
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		codec := codecFor(entry.Name())
		if codec == nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		value, err := domino.DecodeConfig(codec, data)
		if err != nil {
			continue
		}
		out = append(out, domino.ConfigInstance{
			InstanceID: stripExt(entry.Name()),
			Value:      value,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out, nil
}

// ListenFactory subscribes to instance events for one factory PID.
func (s *Store) ListenFactory(factoryPID string, l domino.FactoryListener) (domino.Subscription, error) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.factoryListeners[factoryPID] == nil {
		s.factoryListeners[factoryPID] = make(map[uint64]domino.FactoryListener)
	}
	s.factoryListeners[factoryPID][id] = l
	s.mu.Unlock()

	return subscription(func() {
		s.mu.Lock()
		delete(s.factoryListeners[factoryPID], id)
		s.mu.Unlock()
	}), nil
}

// watch translates fsnotify events into configuration events.
func (s *Store) watch(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handle(ctx, watcher, event)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			// Continue watching despite errors.
		}
	}
}

func (s *Store) handle(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	rel, err := filepath.Rel(s.dir, event.Name)
	if err != nil {
		return
	}

	// New factory subdirectory: start watching it.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = watcher.Add(event.Name)
			return
		}
	}

	base := filepath.Base(rel)
	codec := codecFor(base)
	if codec == nil {
		return
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		s.mu.Lock()
		delete(s.known, event.Name)
		s.mu.Unlock()
		if len(parts) == 1 {
			s.dispatch(ctx, stripExt(base), domino.ConfigEvent{Kind: domino.ConfigDeleted})
		} else {
			s.dispatchFactory(ctx, parts[0], domino.FactoryEvent{
				Kind:       domino.FactoryDeleted,
				InstanceID: stripExt(base),
			})
		}

	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		data, err := os.ReadFile(event.Name)
		if err != nil {
			return
		}
		value, err := domino.DecodeConfig(codec, data)
		if err != nil {
			// Partial write or malformed content; wait for the next write.
			return
		}

		s.mu.Lock()
		existed := s.known[event.Name]
		s.known[event.Name] = true
		s.mu.Unlock()

		if len(parts) == 1 {
			s.dispatch(ctx, stripExt(base), domino.ConfigEvent{
				Kind:  domino.ConfigChanged,
				Value: value,
			})
		} else {
			kind := domino.FactoryCreated
			if existed {
				kind = domino.FactoryUpdated
			}
			s.dispatchFactory(ctx, parts[0], domino.FactoryEvent{
				Kind:       kind,
				InstanceID: stripExt(base),
				Value:      value,
			})
		}
	}
}

func (s *Store) dispatch(ctx context.Context, pid string, ev domino.ConfigEvent) {
	s.mu.Lock()
	matched := make([]domino.ConfigListener, 0, len(s.listeners[pid]))
	for _, l := range s.listeners[pid] {
		matched = append(matched, l)
	}
	s.mu.Unlock()

	for _, l := range matched {
		l(ctx, ev)
	}
}

func (s *Store) dispatchFactory(ctx context.Context, factoryPID string, ev domino.FactoryEvent) {
	s.mu.Lock()
	matched := make([]domino.FactoryListener, 0, len(s.factoryListeners[factoryPID]))
	for _, l := range s.factoryListeners[factoryPID] {
		matched = append(matched, l)
	}
	s.mu.Unlock()

	for _, l := range matched {
		l(ctx, ev)
	}
}

// resolve finds the file for a PID in dir, trying each known extension.
func (s *Store) resolve(dir, pid string) (string, domino.Codec) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, pid+ext)
		if _, err := os.Stat(path); err == nil {
			return path, codecFor(path)
		}
	}
	return "", nil
}

func codecFor(name string) domino.Codec {
	switch filepath.Ext(name) {
	case ".json":
		return domino.JSONCodec{}
	case ".yaml", ".yml":
		return domino.YAMLCodec{}
	default:
		return nil
	}
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// subscription adapts a cancel function to domino.Subscription.
type subscription func()

func (s subscription) Cancel() { s() }
