package domino

import "testing"

func TestContextActivated(t *testing.T) {
	if ContextActivated.Name() != "domino.context.activated" {
		t.Errorf("expected name 'domino.context.activated', got %q", ContextActivated.Name())
	}
}

func TestContextDeactivated(t *testing.T) {
	if ContextDeactivated.Name() != "domino.context.deactivated" {
		t.Errorf("expected name 'domino.context.deactivated', got %q", ContextDeactivated.Name())
	}
}

func TestScopeOpened(t *testing.T) {
	if ScopeOpened.Name() != "domino.scope.opened" {
		t.Errorf("expected name 'domino.scope.opened', got %q", ScopeOpened.Name())
	}
}

func TestScopeClosed(t *testing.T) {
	if ScopeClosed.Name() != "domino.scope.closed" {
		t.Errorf("expected name 'domino.scope.closed', got %q", ScopeClosed.Name())
	}
}

func TestCapsuleStartFailed(t *testing.T) {
	if CapsuleStartFailed.Name() != "domino.capsule.start.failed" {
		t.Errorf("expected name 'domino.capsule.start.failed', got %q", CapsuleStartFailed.Name())
	}
}

func TestCapsuleStopFailed(t *testing.T) {
	if CapsuleStopFailed.Name() != "domino.capsule.stop.failed" {
		t.Errorf("expected name 'domino.capsule.stop.failed', got %q", CapsuleStopFailed.Name())
	}
}

func TestWatcherSatisfied(t *testing.T) {
	if WatcherSatisfied.Name() != "domino.watcher.satisfied" {
		t.Errorf("expected name 'domino.watcher.satisfied', got %q", WatcherSatisfied.Name())
	}
}

func TestWatcherUnsatisfied(t *testing.T) {
	if WatcherUnsatisfied.Name() != "domino.watcher.unsatisfied" {
		t.Errorf("expected name 'domino.watcher.unsatisfied', got %q", WatcherUnsatisfied.Name())
	}
}

func TestWatcherCallbackFailed(t *testing.T) {
	if WatcherCallbackFailed.Name() != "domino.watcher.callback.failed" {
		t.Errorf("expected name 'domino.watcher.callback.failed', got %q", WatcherCallbackFailed.Name())
	}
}

func TestConfigScopeReopened(t *testing.T) {
	if ConfigScopeReopened.Name() != "domino.config.scope.reopened" {
		t.Errorf("expected name 'domino.config.scope.reopened', got %q", ConfigScopeReopened.Name())
	}
}

func TestFactoryInstanceCreated(t *testing.T) {
	if FactoryInstanceCreated.Name() != "domino.factory.instance.created" {
		t.Errorf("expected name 'domino.factory.instance.created', got %q", FactoryInstanceCreated.Name())
	}
}

func TestFactoryInstanceUpdated(t *testing.T) {
	if FactoryInstanceUpdated.Name() != "domino.factory.instance.updated" {
		t.Errorf("expected name 'domino.factory.instance.updated', got %q", FactoryInstanceUpdated.Name())
	}
}

func TestFactoryInstanceDeleted(t *testing.T) {
	if FactoryInstanceDeleted.Name() != "domino.factory.instance.deleted" {
		t.Errorf("expected name 'domino.factory.instance.deleted', got %q", FactoryInstanceDeleted.Name())
	}
}

func TestReporterUnsatisfied(t *testing.T) {
	if ReporterUnsatisfied.Name() != "domino.reporter.unsatisfied" {
		t.Errorf("expected name 'domino.reporter.unsatisfied', got %q", ReporterUnsatisfied.Name())
	}
}
