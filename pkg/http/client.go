package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboundRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_outbound_requests_total",
		Help: "Outbound HTTP requests by host and status code",
	}, []string{"host", "code"})

	outboundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paygo_outbound_request_duration_seconds",
		Help:    "Outbound HTTP request latency by host",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"host"})
)

// HTTPClientConfig holds the transport pool and timeout settings
type HTTPClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	KeepAlive     time.Duration
	MinTLSVersion uint16
}

// AcquirerClientConfig is tuned for a handful of bank hosts, each taking
// sustained concurrent traffic from the terminal fleet.
func AcquirerClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		MaxConnsPerHost:     64,
		IdleConnTimeout:     90 * time.Second,

		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second, // banks can be slow

		KeepAlive:     60 * time.Second,
		MinTLSVersion: tls.VersionTLS12,
	}
}

// NewHTTPClient creates a pooled client whose requests are counted and
// timed per host
func NewHTTPClient(cfg *HTTPClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,

		TLSClientConfig: &tls.Config{
			MinVersion: cfg.MinTLSVersion,
		},
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: &instrumentedTransport{next: transport},
		Timeout:   timeout,
	}
}

type instrumentedTransport struct {
	next http.RoundTripper
}

// RoundTrip records the outcome under code "error" when no response arrived
func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	host := req.URL.Host
	outboundDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	outboundRequests.WithLabelValues(host, code).Inc()
	return resp, err
}
