package domino

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// eventLog records lifecycle events in order, safely across goroutines.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(ev string) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) assert(t *testing.T, want ...string) {
	t.Helper()
	got := l.all()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

// logCapsule is a capsule that records its starts and stops.
type logCapsule struct {
	log      *eventLog
	name     string
	startErr error
	stopErr  error
}

func (c *logCapsule) Start(_ context.Context) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.log.add("start:" + c.name)
	return nil
}

func (c *logCapsule) Stop(_ context.Context) error {
	if c.stopErr != nil {
		c.log.add("stopfail:" + c.name)
		return c.stopErr
	}
	c.log.add("stop:" + c.name)
	return nil
}

func TestScope_StopReversesAddOrder(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}

	sc, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		for _, name := range []string{"a", "b", "c"} {
			if err := s.Add(ctx, &logCapsule{log: log, name: name}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	sc.Stop(ctx)

	log.assert(t,
		"start:a", "start:b", "start:c",
		"stop:c", "stop:b", "stop:a",
	)
}

func TestScope_StopIdempotent(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}

	sc, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		return s.Add(ctx, &logCapsule{log: log, name: "a"})
	})
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	sc.Stop(ctx)
	sc.Stop(ctx)

	log.assert(t, "start:a", "stop:a")
	if !sc.Terminated() {
		t.Error("expected scope terminated")
	}
}

func TestScope_AddAfterStop(t *testing.T) {
	ctx := context.Background()

	sc, err := NewScope(ctx, nil)
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}
	sc.Stop(ctx)

	err = sc.Add(ctx, &logCapsule{log: &eventLog{}, name: "late"})
	if !errors.Is(err, ErrScopeTerminated) {
		t.Fatalf("expected ErrScopeTerminated, got %v", err)
	}
}

func TestScope_StartFailureRollsBackOpeningScope(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}
	boom := errors.New("boom")

	_, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		capsules := []*logCapsule{
			{log: log, name: "one"},
			{log: log, name: "two"},
			{log: log, name: "three", startErr: boom},
			{log: log, name: "four"},
			{log: log, name: "five"},
		}
		for _, c := range capsules {
			if err := s.Add(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})

	if err == nil {
		t.Fatal("expected error from failed admission")
	}
	var startErr *StartError
	if !errors.As(err, &startErr) {
		t.Fatalf("expected *StartError, got %T", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}

	// Capsules one and two rolled back in reverse; four and five never ran.
	log.assert(t,
		"start:one", "start:two",
		"stop:two", "stop:one",
	)
}

func TestScope_StopFailureContinuesTeardown(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}

	sc, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		for _, c := range []*logCapsule{
			{log: log, name: "a"},
			{log: log, name: "b", stopErr: errors.New("release failed")},
			{log: log, name: "c"},
		} {
			if err := s.Add(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	sc.Stop(ctx)

	log.assert(t,
		"start:a", "start:b", "start:c",
		"stop:c", "stopfail:b", "stop:a",
	)
	if !sc.Terminated() {
		t.Error("expected scope terminated despite stop failure")
	}
}

func TestScope_NestedChildStopsBeforeEarlierSiblings(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}

	parent, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		if err := s.Add(ctx, &logCapsule{log: log, name: "a"}); err != nil {
			return err
		}
		if _, err := s.NewChild(ctx, func(ctx context.Context, child *Scope) error {
			if err := child.Add(ctx, &logCapsule{log: log, name: "x"}); err != nil {
				return err
			}
			return child.Add(ctx, &logCapsule{log: log, name: "y"})
		}); err != nil {
			return err
		}
		return s.Add(ctx, &logCapsule{log: log, name: "b"})
	})
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	parent.Stop(ctx)

	// Depth-first cascade: b first, then the whole child, then a.
	log.assert(t,
		"start:a", "start:x", "start:y", "start:b",
		"stop:b", "stop:y", "stop:x", "stop:a",
	)
}

func TestScope_ChildStoppedEarlyIsNotStoppedAgain(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}
	var child *Scope

	parent, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		c, err := s.NewChild(ctx, func(ctx context.Context, cs *Scope) error {
			return cs.Add(ctx, &logCapsule{log: log, name: "x"})
		})
		if err != nil {
			return err
		}
		child = c
		return nil
	})
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	child.Stop(ctx)
	parent.Stop(ctx)

	log.assert(t, "start:x", "stop:x")
}

func TestScope_ChildFailureLeavesEarlierSiblingsRunning(t *testing.T) {
	ctx := context.Background()
	log := &eventLog{}
	boom := errors.New("boom")

	parent, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		if err := s.Add(ctx, &logCapsule{log: log, name: "a"}); err != nil {
			return err
		}
		_, childErr := s.NewChild(ctx, func(ctx context.Context, child *Scope) error {
			if err := child.Add(ctx, &logCapsule{log: log, name: "x"}); err != nil {
				return err
			}
			return child.Add(ctx, &logCapsule{log: log, name: "bad", startErr: boom})
		})
		if childErr == nil {
			t.Error("expected child open to fail")
		}
		// The failure is contained to the child branch.
		return nil
	})
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	log.assert(t, "start:a", "start:x", "stop:x")

	parent.Stop(ctx)
	log.assert(t, "start:a", "start:x", "stop:x", "stop:a")
}

func TestScope_NotTerminatedWhileStopping(t *testing.T) {
	ctx := context.Background()
	var sawTerminated bool
	var sc *Scope

	sc, err := NewScope(ctx, func(ctx context.Context, s *Scope) error {
		return s.Add(ctx, OnStop(func(ctx context.Context) error {
			sawTerminated = sc.Terminated()
			return nil
		}))
	})
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	sc.Stop(ctx)
	if sawTerminated {
		t.Error("scope reported terminated before capsule stops finished")
	}
	if !sc.Terminated() {
		t.Error("expected scope terminated after stop")
	}
}
