// Package shutdown stops the server's components in reverse start order.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paygo_shutdown_duration_seconds",
		Help:    "Total time taken to shut down",
		Buckets: []float64{0.5, 1, 5, 10, 15, 20, 30},
	})

	componentShutdownDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paygo_component_shutdown_duration_seconds",
		Help:    "Time taken to stop individual components",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20},
	}, []string{"component"})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_shutdown_errors_total",
		Help: "Components that failed to stop cleanly",
	}, []string{"component"})
)

// Func stops one component
type Func func(context.Context) error

type component struct {
	name string
	stop Func
}

// Manager stops registered components one at a time, last registered first.
// Register in start order: storage, then services, then servers.
type Manager struct {
	logger     *zap.Logger
	timeout    time.Duration
	mu         sync.Mutex
	components []component
	once       sync.Once
	err        error
}

// NewManager creates a manager whose whole shutdown is bounded by timeout
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

// Register adds a component to stop
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, stop: fn})
	m.logger.Debug("Registered shutdown component",
		zap.String("component", name),
		zap.Int("order", len(m.components)),
	)
}

// RegisterHTTPServer registers anything with an http.Server style Shutdown
func (m *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	m.Register(name, server.Shutdown)
}

// RegisterCloser registers a component stopped by Close
func (m *Manager) RegisterCloser(name string, closer interface{ Close() error }) {
	m.Register(name, func(context.Context) error { return closer.Close() })
}

// RegisterNoErr registers a stop function that cannot fail
func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Wait blocks until SIGINT, SIGTERM or ctx is done, then shuts down
func (m *Manager) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	m.logger.Info("Shutdown requested", zap.Duration("timeout", m.timeout))
	return m.Shutdown()
}

// Shutdown stops every component in reverse registration order. Later calls
// return the first call's result.
func (m *Manager) Shutdown() error {
	m.once.Do(func() {
		m.err = m.shutdown()
	})
	return m.err
}

func (m *Manager) shutdown() error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if ctx.Err() != nil {
			m.logger.Warn("Shutdown deadline reached, skipping component", zap.String("component", c.name))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, ctx.Err()))
			shutdownErrors.WithLabelValues(c.name).Inc()
			continue
		}

		began := time.Now()
		if err := c.stop(ctx); err != nil {
			m.logger.Error("Component shutdown failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			shutdownErrors.WithLabelValues(c.name).Inc()
		} else {
			m.logger.Info("Component stopped",
				zap.String("component", c.name),
				zap.Duration("elapsed", time.Since(began)),
			)
		}
		componentShutdownDuration.WithLabelValues(c.name).Observe(time.Since(began).Seconds())
	}

	elapsed := time.Since(start)
	shutdownDuration.Observe(elapsed.Seconds())
	if len(errs) > 0 {
		m.logger.Error("Shutdown completed with errors", zap.Int("errors", len(errs)), zap.Duration("elapsed", elapsed))
		return errors.Join(errs...)
	}
	m.logger.Info("Shutdown completed", zap.Duration("elapsed", elapsed))
	return nil
}
