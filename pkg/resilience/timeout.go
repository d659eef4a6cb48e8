package resilience

import (
	"context"
	"time"
)

// TimeoutConfig holds the timeout hierarchy, outermost first:
//
//	HTTP handler (60s) > service (50s) > acquirer call (30s) > database query
//
// Each layer finishes before its parent gives up.
type TimeoutConfig struct {
	HTTPHandler time.Duration
	CronJob     time.Duration
	Service     time.Duration
	Acquirer    time.Duration
	Publish     time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 60 * time.Second,
		CronJob:     5 * time.Minute,
		Service:     50 * time.Second,
		Acquirer:    30 * time.Second,
		Publish:     5 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		CronJob:     30 * time.Second,
		Service:     4 * time.Second,
		Acquirer:    2 * time.Second,
		Publish:     time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// CronContext creates a context with timeout for cron jobs
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// AcquirerContext bounds a single bank call
func (tc *TimeoutConfig) AcquirerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Acquirer)
}

// PublishContext bounds event delivery so a slow broker never holds up a payment
func (tc *TimeoutConfig) PublishContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Publish)
}
