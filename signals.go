package domino

import "github.com/zoobzio/capitan"

// Activation lifecycle signals.
var (
	// ContextActivated is emitted when a CapsuleContext opens its root scope.
	ContextActivated = capitan.NewSignal(
		"domino.context.activated",
		"Root scope opened",
	)

	// ContextDeactivated is emitted when a CapsuleContext stops its root scope.
	ContextDeactivated = capitan.NewSignal(
		"domino.context.deactivated",
		"Root scope stopped",
	)
)

// Scope lifecycle signals.
var (
	// ScopeOpened is emitted when a capsule scope opens.
	ScopeOpened = capitan.NewSignal(
		"domino.scope.opened",
		"Capsule scope opened",
	)

	// ScopeClosed is emitted after a capsule scope finished teardown.
	ScopeClosed = capitan.NewSignal(
		"domino.scope.closed",
		"Capsule scope closed",
	)

	// CapsuleStartFailed is emitted when a capsule start fails during
	// admission into a scope.
	CapsuleStartFailed = capitan.NewSignal(
		"domino.capsule.start.failed",
		"Capsule start failed",
	)

	// CapsuleStopFailed is emitted when a capsule stop fails during scope
	// teardown. Teardown continues with the remaining capsules.
	CapsuleStopFailed = capitan.NewSignal(
		"domino.capsule.stop.failed",
		"Capsule stop failed during teardown",
	)
)

// Watcher signals.
var (
	// WatcherSatisfied is emitted when a condition watcher transitions to
	// satisfied and opens its scope.
	WatcherSatisfied = capitan.NewSignal(
		"domino.watcher.satisfied",
		"Watcher condition satisfied",
	)

	// WatcherUnsatisfied is emitted when a condition watcher loses its
	// condition and closes its scope.
	WatcherUnsatisfied = capitan.NewSignal(
		"domino.watcher.unsatisfied",
		"Watcher condition lost",
	)

	// WatcherCallbackFailed is emitted when a user callback passed to a
	// watcher fails. The failure is contained to that watcher's scope
	// attempt; the watcher remains functional for future transitions.
	WatcherCallbackFailed = capitan.NewSignal(
		"domino.watcher.callback.failed",
		"Watcher user callback failed",
	)

	// ConfigScopeReopened is emitted when a configuration watcher replaces
	// its scope in response to a value change.
	ConfigScopeReopened = capitan.NewSignal(
		"domino.config.scope.reopened",
		"Configuration scope stopped and reopened",
	)
)

// Factory configuration signals.
var (
	// FactoryInstanceCreated is emitted when a factory tracker opens a scope
	// for a new configuration instance.
	FactoryInstanceCreated = capitan.NewSignal(
		"domino.factory.instance.created",
		"Factory configuration instance scope opened",
	)

	// FactoryInstanceUpdated is emitted when a factory tracker replaces an
	// instance scope after an update.
	FactoryInstanceUpdated = capitan.NewSignal(
		"domino.factory.instance.updated",
		"Factory configuration instance scope replaced",
	)

	// FactoryInstanceDeleted is emitted when a factory tracker stops an
	// instance scope after deletion.
	FactoryInstanceDeleted = capitan.NewSignal(
		"domino.factory.instance.deleted",
		"Factory configuration instance scope stopped",
	)
)

// Reporter signals.
var (
	// ReporterUnsatisfied is emitted periodically by the background reporter
	// naming tracked conditions that are currently unsatisfied.
	ReporterUnsatisfied = capitan.NewSignal(
		"domino.reporter.unsatisfied",
		"Conditions currently unsatisfied",
	)
)
