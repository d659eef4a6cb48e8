package resilience

import (
	"context"
	"testing"
	"time"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	config := DefaultTimeoutConfig()

	if config.HTTPHandler <= config.Service {
		t.Errorf("HTTPHandler (%v) must be > Service (%v)", config.HTTPHandler, config.Service)
	}

	if config.Service <= config.Acquirer {
		t.Errorf("Service (%v) must be > Acquirer (%v)", config.Service, config.Acquirer)
	}

	if config.Acquirer != 30*time.Second {
		t.Errorf("Expected Acquirer = 30s, got %v", config.Acquirer)
	}
}

func TestTestTimeoutConfig(t *testing.T) {
	config := TestTimeoutConfig()

	if config.HTTPHandler >= 10*time.Second {
		t.Errorf("Test timeouts should be < 10s, got %v", config.HTTPHandler)
	}

	if config.Service <= config.Acquirer {
		t.Errorf("Service (%v) must be > Acquirer (%v)", config.Service, config.Acquirer)
	}
}

func TestAcquirerContext_Deadline(t *testing.T) {
	config := TestTimeoutConfig()

	ctx, cancel := config.AcquirerContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if remaining := time.Until(deadline); remaining > config.Acquirer {
		t.Errorf("deadline %v is beyond the acquirer timeout %v", remaining, config.Acquirer)
	}
}

func TestAcquirerContext_InheritsCancellation(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := DefaultTimeoutConfig().AcquirerContext(parent)
	defer cancel()

	cancelParent()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not cancelled with its parent")
	}
}
