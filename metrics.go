package domino

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key engine events.
type MetricsProvider interface {
	// OnScopeOpened is called when a capsule scope opens.
	OnScopeOpened()

	// OnScopeClosed is called after a scope finished teardown.
	// Capsules is the number of capsules the scope held.
	OnScopeClosed(capsules int)

	// OnCapsuleStartFailure is called when a capsule start fails during
	// admission.
	OnCapsuleStartFailure()

	// OnCapsuleStopFailure is called when a capsule stop fails during
	// teardown.
	OnCapsuleStopFailure()

	// OnWatcherTransition is called when a condition watcher changes state.
	OnWatcherTransition(satisfied bool)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnScopeOpened()             {}
func (NoOpMetricsProvider) OnScopeClosed(_ int)        {}
func (NoOpMetricsProvider) OnCapsuleStartFailure()     {}
func (NoOpMetricsProvider) OnCapsuleStopFailure()      {}
func (NoOpMetricsProvider) OnWatcherTransition(_ bool) {}
