// Package domino provides scoped, cascading, idempotent lifecycle
// composition: a generic mechanism for nesting reversible start/stop logic
// and automatically cascading teardown when an upstream condition stops
// holding.
//
// # Capsules and scopes
//
// The core types are Capsule, the minimal unit of reversible behavior, and
// Scope, an ordered container that starts capsules on admission and stops
// them in reverse admission order on teardown:
//
//	sc, err := domino.NewScope(ctx, func(ctx context.Context, s *domino.Scope) error {
//	    return s.Add(ctx, domino.NewCapsule(openConn, closeConn))
//	})
//	...
//	sc.Stop(ctx)
//
// Scopes nest: Scope.NewChild admits a nested scope into its parent as just
// another capsule, so stopping a parent cascades depth-first through every
// child. A scope is stopped at most once and never reused.
//
// CapsuleContext ties a root scope to an activation unit: Activate opens it
// and runs the unit's top-level logic inside it, Deactivate cascades a stop
// through everything the unit ever registered.
//
// # Watchers
//
// Watchers translate asynchronous collaborator notifications into scope
// open/close calls:
//
//   - ServiceWatcher opens a scope while every one of its condition keys
//     has a matching registration, closing it when any key loses its last
//     match.
//   - ConfigWatcher binds a scope to the value of a configuration PID,
//     replacing the scope on every change.
//   - FactoryTracker manages one scope per factory configuration instance.
//
// All three are themselves capsules: admit them into a scope to bind their
// lifetime to it.
//
//	watcher := domino.NewServiceWatcher(registry, []domino.ServiceKey{
//	    domino.Key("http.Handler"),
//	    domino.Key("db.Pool"),
//	}, func(ctx context.Context, s *domino.Scope, refs []domino.ServiceRef) error {
//	    _, err := domino.ProvideService(ctx, s, registry, newAPI(refs), []string{"api.Server"}, nil)
//	    return err
//	})
//	err := scope.Add(ctx, watcher)
//
// # Failure containment
//
// A capsule start failure aborts only the admission of that capsule; when
// it happens while a scope is opening, the capsules already admitted are
// rolled back in reverse order and the error propagates to whatever opened
// the scope. Stop failures are reported through capitan signals and never
// interrupt the rest of a teardown cascade.
//
// # Observability
//
// Engine events are emitted as capitan signals (see signals.go); hook them
// for logging:
//
//	capitan.Hook(domino.CapsuleStopFailed, func(_ context.Context, e *capitan.Event) {
//	    msg, _ := domino.KeyError.From(e)
//	    log.Printf("stop failed: %s", msg)
//	})
//
// A MetricsProvider may be attached to a CapsuleContext or a watcher for
// metrics integration, and a background Reporter can periodically name the
// conditions that are unsatisfied.
//
// # Collaborators
//
// Registry and ConfigStore are the external collaborator boundaries. The
// package ships in-memory implementations (MemoryRegistry,
// MemoryConfigStore) with synchronous event dispatch, and pkg/fileconf
// provides a file-backed ConfigStore using fsnotify.
package domino
