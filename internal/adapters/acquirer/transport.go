package acquirer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/paygo-service/pkg/errors"
	"github.com/kevin07696/paygo-service/pkg/resilience"
	"github.com/zoobzio/clockz"
)

const defaultDescription = "PayGo terminal payment"

// Config is the per-bank connection settings
type Config struct {
	BaseURL    string
	APIKey     string
	MerchantID string
}

// HTTPClient sends bank requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customizes a backend
type Option func(*transport)

// WithTimeouts overrides the timeout hierarchy used for bank calls
func WithTimeouts(tc *resilience.TimeoutConfig) Option {
	return func(t *transport) {
		t.timeouts = tc
	}
}

// WithCircuitBreaker overrides the per-bank breaker settings
func WithCircuitBreaker(cfg CircuitBreakerConfig) Option {
	return func(t *transport) {
		t.breakerConfig = cfg
	}
}

// WithClock sets the time source for the breaker
func WithClock(clock clockz.Clock) Option {
	return func(t *transport) {
		t.clock = clock
	}
}

// transport is the HTTP plumbing shared by every bank backend
type transport struct {
	acquirer      domain.BankAcquirer
	httpClient    HTTPClient
	logger        ports.Logger
	timeouts      *resilience.TimeoutConfig
	breakerConfig CircuitBreakerConfig
	clock         clockz.Clock
	breaker       *CircuitBreaker
}

// reply is a raw bank answer
type reply struct {
	status int
	body   []byte
}

func newTransport(acquirer domain.BankAcquirer, httpClient HTTPClient, logger ports.Logger, opts []Option) *transport {
	t := &transport{
		acquirer:      acquirer,
		httpClient:    httpClient,
		logger:        logger,
		timeouts:      resilience.DefaultTimeoutConfig(),
		breakerConfig: DefaultCircuitBreakerConfig(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.breaker = NewCircuitBreaker(t.breakerConfig, t.clock)
	return t
}

// post sends one request through the breaker under the acquirer timeout.
// Transport failures and 5xx answers come back as *pkgerrors.PaymentError,
// the latter carrying the body; anything else is handed to the caller to
// interpret.
func (t *transport) post(ctx context.Context, url, contentType string, headers map[string]string, body []byte) (*reply, error) {
	var out *reply

	err := t.breaker.Call(func() error {
		callCtx, cancel := t.timeouts.AcquirerContext(ctx)
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return t.paymentError("REQUEST_ERROR", "failed to create request", pkgerrors.CategoryInvalidRequest, false).WithCause(err)
		}
		req.Header.Set("Content-Type", contentType)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		t.logger.Info("sending acquirer request",
			ports.String("acquirer", string(t.acquirer)),
			ports.String("url", url),
		)

		start := time.Now()
		resp, err := t.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return t.paymentError("TIMEOUT", "acquirer did not answer in time", pkgerrors.CategoryTimeout, true).WithCause(err)
			}
			return t.paymentError("NETWORK_ERROR", "failed to reach acquirer", pkgerrors.CategoryNetworkError, true).WithCause(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return t.paymentError("READ_ERROR", "failed to read acquirer response", pkgerrors.CategoryNetworkError, true).WithCause(err)
		}

		t.logger.Info("acquirer responded",
			ports.String("acquirer", string(t.acquirer)),
			ports.Int("status", resp.StatusCode),
			ports.Duration("latency", time.Since(start)),
		)

		if resp.StatusCode >= http.StatusInternalServerError {
			pe := t.paymentError("GATEWAY_ERROR", "acquirer error", pkgerrors.CategorySystemError, true).WithRawResponse(data)
			pe.GatewayMessage = fmt.Sprintf("HTTP %d", resp.StatusCode)
			return pe
		}

		out = &reply{status: resp.StatusCode, body: data}
		return nil
	})

	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		return nil, t.paymentError("UNAVAILABLE", "acquirer temporarily disabled", pkgerrors.CategoryUnavailable, true).WithCause(err)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *transport) paymentError(code, msg string, category pkgerrors.ErrorCategory, retriable bool) *pkgerrors.PaymentError {
	return pkgerrors.NewPaymentError(code, msg, category, retriable).WithAcquirer(string(t.acquirer))
}

// badResponse reports an answer that could not be decoded
func (t *transport) badResponse(rep *reply, err error) error {
	return t.paymentError("BAD_RESPONSE", "unreadable acquirer response", pkgerrors.CategoryBadResponse, false).
		WithRawResponse(rep.body).
		WithCause(err)
}

func describe(description string) string {
	if description == "" {
		return defaultDescription
	}
	return description
}

// flexString decodes a JSON string or number into its text form. Banks
// disagree on whether identifiers are quoted.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}
