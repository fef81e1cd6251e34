package domino

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Condition is anything whose satisfaction the Reporter can observe.
// ServiceWatcher implements it.
type Condition interface {
	Satisfied() bool
	String() string
}

// Reporter periodically emits the ReporterUnsatisfied signal naming the
// tracked conditions that currently do not hold. It is a Capsule, owned by
// whichever scope it is admitted into; CapsuleContext admits one into the
// root scope when ReportInterval is configured.
type Reporter struct {
	interval time.Duration
	clock    clockz.Clock

	mu         sync.Mutex
	conditions []Condition
	done       chan struct{}
}

// NewReporter creates a reporter with the given emission interval.
func NewReporter(interval time.Duration) *Reporter {
	return &Reporter{
		interval: interval,
		clock:    clockz.RealClock,
	}
}

// Clock sets a custom clock. Use clockz.FakeClock for deterministic tests.
// Must be called before the reporter starts.
func (r *Reporter) Clock(clock clockz.Clock) *Reporter {
	r.clock = clock
	return r
}

// Track adds a condition to the reporter. Safe at any time.
func (r *Reporter) Track(c Condition) {
	r.mu.Lock()
	r.conditions = append(r.conditions, c)
	r.mu.Unlock()
}

// Start launches the background reporting task. Part of the Capsule
// contract.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return fmt.Errorf("reporter already started")
	}
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	go func() {
		timer := r.clock.NewTimer(r.interval)
		defer timer.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-timer.C():
				r.report(ctx)
				timer.Reset(r.interval)
			}
		}
	}()
	return nil
}

// Stop cancels the background task. Part of the Capsule contract.
func (r *Reporter) Stop(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.done = nil
	r.mu.Unlock()

	if done != nil {
		close(done)
	}
	return nil
}

// report emits one snapshot of unsatisfied conditions, if any.
func (r *Reporter) report(ctx context.Context) {
	r.mu.Lock()
	var names []string
	for _, c := range r.conditions {
		if !c.Satisfied() {
			names = append(names, c.String())
		}
	}
	r.mu.Unlock()

	if len(names) == 0 {
		return
	}
	capitan.Emit(ctx, ReporterUnsatisfied,
		KeyUnsatisfied.Field(strings.Join(names, ",")),
		KeyInterval.Field(r.interval),
	)
}
