package shutdown

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker counts running work so shutdown can wait for it. Once
// shutdown starts no new work is admitted.
type InFlightTracker struct {
	name   string
	logger *zap.Logger

	mu       sync.Mutex
	wg       sync.WaitGroup
	stopping bool
}

// NewInFlightTracker creates a tracker; name shows up in logs
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{name: name, logger: logger}
}

// Run executes fn as tracked work. It returns false without calling fn when
// shutdown has started.
func (t *InFlightTracker) Run(fn func()) bool {
	t.mu.Lock()
	if t.stopping {
		t.mu.Unlock()
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()
	fn()
	return true
}

// IsShuttingDown reports whether Shutdown has been called
func (t *InFlightTracker) IsShuttingDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopping
}

// Shutdown stops admitting work and waits for running work or ctx
func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.stopping = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("In-flight work drained", zap.String("tracker", t.name))
		return nil
	case <-ctx.Done():
		t.logger.Warn("Gave up waiting for in-flight work", zap.String("tracker", t.name))
		return ctx.Err()
	}
}
