package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	h := NewHealthChecker().
		AddCheck("database", func(ctx context.Context) error { return nil })

	status := h.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["database"])
}

func TestHealthChecker_FailingCheck(t *testing.T) {
	h := NewHealthChecker().
		AddCheck("database", func(ctx context.Context) error { return errors.New("connection refused") }).
		AddCheck("kafka", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	h.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy: connection refused", status.Checks["database"])
	assert.Equal(t, "healthy", status.Checks["kafka"])
}

func TestHealthChecker_NoChecks(t *testing.T) {
	status := NewHealthChecker().Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Checks)
}

func TestMetricsMux_Endpoints(t *testing.T) {
	m := NewMetricsMux(NewHealthChecker())

	for _, path := range []string{"/metrics", "/health", "/ready"} {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsMiddleware_RecordsStatus(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestBusinessMetrics_DoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordPaymentTransaction("qr_code", "sbp", "completed", 10000, "RUB", 0.2)
		RecordPaymentTransaction("biometry_face", "", "completed", 500, "RUB", 0.01)
		RecordPaymentLifecycle("requested", 1)
		RecordAcquirerError("vtb", "timeout")
		RecordCardAdded("visa", "vtb")
		RecordTerminalHeartbeat("online")
		RecordTerminalsMarkedStale(2)
		RecordEventPublished("payment.completed", true)
	})
}
