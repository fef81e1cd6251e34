package domino

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// fakeCondition is a Condition with a settable state.
type fakeCondition struct {
	name      string
	satisfied atomic.Bool
}

func (c *fakeCondition) Satisfied() bool { return c.satisfied.Load() }
func (c *fakeCondition) String() string  { return c.name }

func TestReporter_EmitsUnsatisfiedConditions(t *testing.T) {
	ctx := context.Background()
	clock := clockz.NewFakeClock()

	var reports atomic.Int32
	var lastNames atomic.Value
	capitan.Hook(ReporterUnsatisfied, func(_ context.Context, e *capitan.Event) {
		reports.Add(1)
		if names, ok := KeyUnsatisfied.From(e); ok {
			lastNames.Store(names)
		}
	})

	cond := &fakeCondition{name: "service-watcher[db]"}
	r := NewReporter(100 * time.Millisecond).Clock(clock)
	r.Track(cond)

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop(ctx)

	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if got := reports.Load(); got != 1 {
		t.Fatalf("expected 1 report, got %d", got)
	}
	if names, _ := lastNames.Load().(string); names != "service-watcher[db]" {
		t.Errorf("expected unsatisfied condition named, got %q", names)
	}
}

func TestReporter_SilentWhenAllSatisfied(t *testing.T) {
	ctx := context.Background()
	clock := clockz.NewFakeClock()

	var reports atomic.Int32
	capitan.Hook(ReporterUnsatisfied, func(_ context.Context, e *capitan.Event) {
		reports.Add(1)
	})

	cond := &fakeCondition{name: "service-watcher[cache]"}
	cond.satisfied.Store(true)
	r := NewReporter(100 * time.Millisecond).Clock(clock)
	r.Track(cond)

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop(ctx)

	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if got := reports.Load(); got != 0 {
		t.Errorf("expected no reports when satisfied, got %d", got)
	}
}

func TestReporter_StopEndsTask(t *testing.T) {
	ctx := context.Background()
	clock := clockz.NewFakeClock()

	var reports atomic.Int32
	capitan.Hook(ReporterUnsatisfied, func(_ context.Context, e *capitan.Event) {
		reports.Add(1)
	})

	r := NewReporter(100 * time.Millisecond).Clock(clock)
	r.Track(&fakeCondition{name: "service-watcher[queue]"})

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	clock.Advance(500 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if got := reports.Load(); got != 0 {
		t.Errorf("expected no reports after stop, got %d", got)
	}
}

func TestReporter_DoubleStart(t *testing.T) {
	ctx := context.Background()
	r := NewReporter(time.Minute).Clock(clockz.NewFakeClock())

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop(ctx)

	if err := r.Start(ctx); err == nil {
		t.Fatal("expected error on second start")
	}
}
