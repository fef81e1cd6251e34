package domino

import "github.com/zoobzio/capitan"

// Field keys for engine events.
var (
	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyWatcher is the name of the watcher involved in an event.
	KeyWatcher = capitan.NewStringKey("watcher")

	// KeyInterface is the service interface identifier of a condition key.
	KeyInterface = capitan.NewStringKey("interface")

	// KeyPID is the configuration identifier being watched.
	KeyPID = capitan.NewStringKey("pid")

	// KeyInstanceID is the factory configuration instance identifier.
	KeyInstanceID = capitan.NewStringKey("instance_id")

	// KeyCapsules is the number of capsules a scope held at teardown.
	KeyCapsules = capitan.NewIntKey("capsules")

	// KeyUnsatisfied is the comma-joined names of unsatisfied conditions.
	KeyUnsatisfied = capitan.NewStringKey("unsatisfied")

	// KeyInterval is the configured reporter interval.
	KeyInterval = capitan.NewDurationKey("interval")
)
