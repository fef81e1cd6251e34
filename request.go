package domino

import "github.com/zoobzio/pipz"

// Request carries one watcher delivery through the callback pipeline.
// Only the fields relevant to the originating watcher kind are set.
type Request struct {
	// Scope is the freshly opened scope the callback populates.
	Scope *Scope

	// Services holds the resolved references, one per condition key,
	// for service watcher deliveries.
	Services []ServiceRef

	// PID is the configuration identifier for configuration deliveries.
	PID string

	// InstanceID is the factory instance identifier, when applicable.
	InstanceID string

	// Value is the configuration value for configuration deliveries.
	Value ConfigMap
}

const callbackID = pipz.Name("callback")

// buildPipeline wraps a terminal callback with pipeline options.
func buildPipeline(terminal pipz.Chainable[*Request], opts []Option) pipz.Chainable[*Request] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}
