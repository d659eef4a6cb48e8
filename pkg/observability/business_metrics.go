package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Terminal payment metrics
	paymentTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_payment_transactions_total",
		Help: "Total number of terminal payments by final outcome",
	}, []string{
		"payment_method", // nfc_card, nfc_phone, qr_code, biometry_*
		"acquirer",       // vtb, alfabank, centrinvest, sbp, none
		"status",         // completed, failed
	})

	paymentAmountKopecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_payment_amount_kopecks_total",
		Help: "Total payment amount in kopecks (for revenue tracking)",
	}, []string{
		"payment_method",
		"acquirer",
		"status",
		"currency",
	})

	paymentProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "paygo_payment_processing_duration_seconds",
		Help: "Time from confirmation to final status",
		// Acquirer calls are bounded at 30s
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"payment_method",
		"acquirer",
		"status",
	})

	paymentLifecycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_payment_lifecycle_total",
		Help: "Payment requests, cancellations, expiries and refunds",
	}, []string{
		"event", // requested, cancelled, expired, refunded
	})

	acquirerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_acquirer_errors_total",
		Help: "Acquirer calls that ended in a transport or protocol error",
	}, []string{
		"acquirer",
		"category", // timeout, network_error, unavailable, bad_response
	})

	cardsAddedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_cards_added_total",
		Help: "Total cards tokenized and stored",
	}, []string{
		"payment_system",
		"issuer",
	})

	terminalHeartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_terminal_heartbeats_total",
		Help: "Heartbeats received from terminals",
	}, []string{
		"status",
	})

	terminalsMarkedStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paygo_terminals_marked_stale_total",
		Help: "Online terminals switched to offline for missing heartbeats",
	})

	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_events_published_total",
		Help: "Transaction lifecycle events handed to the publisher",
	}, []string{
		"event_type",
		"status", // success, failed
	})
)

// RecordPaymentTransaction records the final outcome of a confirmed payment.
// This is the primary business metric for revenue and success rate.
func RecordPaymentTransaction(method, acquirer, status string, amountKopecks int64, currency string, duration float64) {
	if acquirer == "" {
		acquirer = "none"
	}
	paymentTransactionsTotal.WithLabelValues(method, acquirer, status).Inc()
	paymentAmountKopecks.WithLabelValues(method, acquirer, status, currency).Add(float64(amountKopecks))
	paymentProcessingDuration.WithLabelValues(method, acquirer, status).Observe(duration)

	// Success rate is derived in PromQL:
	// sum(rate(paygo_payment_transactions_total{status="completed"}[5m])) by (payment_method)
	// /
	// sum(rate(paygo_payment_transactions_total[5m])) by (payment_method)
}

// RecordPaymentLifecycle counts a non-dispatch state change
func RecordPaymentLifecycle(event string, n int) {
	paymentLifecycleTotal.WithLabelValues(event).Add(float64(n))
}

// RecordAcquirerError counts a failed bank call by error category
func RecordAcquirerError(acquirer, category string) {
	acquirerErrorsTotal.WithLabelValues(acquirer, category).Inc()
}

// RecordCardAdded records card tokenization
func RecordCardAdded(paymentSystem, issuer string) {
	cardsAddedTotal.WithLabelValues(paymentSystem, issuer).Inc()
}

// RecordTerminalHeartbeat records a terminal check-in
func RecordTerminalHeartbeat(status string) {
	terminalHeartbeatsTotal.WithLabelValues(status).Inc()
}

// RecordTerminalsMarkedStale adds n to the stale sweep counter
func RecordTerminalsMarkedStale(n int64) {
	terminalsMarkedStale.Add(float64(n))
}

// RecordEventPublished records an event delivery attempt
func RecordEventPublished(eventType string, ok bool) {
	status := "success"
	if !ok {
		status = "failed"
	}
	eventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
