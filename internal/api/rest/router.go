// Package rest exposes the services over JSON/HTTP under /api/v1.
package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kevin07696/paygo-service/internal/domain"
	appmw "github.com/kevin07696/paygo-service/internal/middleware"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	"github.com/kevin07696/paygo-service/pkg/middleware"
	"github.com/kevin07696/paygo-service/pkg/observability"
	"github.com/kevin07696/paygo-service/pkg/resilience"
	"go.uber.org/zap"
)

// Services are the business operations the API exposes
type Services struct {
	Payments  serviceports.PaymentService
	Cards     serviceports.CardService
	Terminals serviceports.TerminalService
	Users     serviceports.UserService
	Admin     serviceports.AdminService
}

// Options tune the middleware chain
type Options struct {
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter *middleware.RateLimiter
	Timeouts    *resilience.TimeoutConfig
	Development bool
}

// Handler serves every /api/v1 route
type Handler struct {
	svc    Services
	logger *zap.Logger
}

// NewRouter builds the API router with its middleware chain
func NewRouter(svc Services, tokens TokenValidator, logger *zap.Logger, opts Options) *mux.Router {
	if opts.Timeouts == nil {
		opts.Timeouts = resilience.DefaultTimeoutConfig()
	}
	h := &Handler{svc: svc, logger: logger}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, logger, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, logger, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(
		middleware.RequestID,
		middleware.Recovery(logger),
		middleware.Logging(logger),
		observability.MetricsMiddleware,
		appmw.NewSecurityHeaders(opts.Development).Middleware,
	)
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware)
	}
	r.Use(middleware.Timeout(opts.Timeouts), middleware.Gzip)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public and terminal-facing routes
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/terminals/heartbeat", h.HeartbeatByBody).Methods(http.MethodPost)
	api.HandleFunc("/terminals/{id}/heartbeat", h.Heartbeat).Methods(http.MethodPost)
	api.HandleFunc("/terminals/{id}/config", h.TerminalConfig).Methods(http.MethodGet)
	api.HandleFunc("/transactions/payment-request", h.PaymentRequest).Methods(http.MethodPost)
	api.HandleFunc("/transactions/payment-confirm", h.PaymentConfirm).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(authenticate(tokens, logger))

	staff := []domain.UserRole{domain.UserRoleAdmin, domain.UserRoleOperator}
	admin := domain.UserRoleAdmin

	private.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)

	private.HandleFunc("/users/me", h.Me).Methods(http.MethodGet)
	private.HandleFunc("/users/me", h.UpdateMe).Methods(http.MethodPut)
	private.HandleFunc("/users/me/cards", h.MyCards).Methods(http.MethodGet)
	private.HandleFunc("/users/me/transactions", h.MyTransactions).Methods(http.MethodGet)
	private.HandleFunc("/users/me/stats", h.MyStats).Methods(http.MethodGet)
	private.HandleFunc("/users", requireRoles(logger, h.ListUsers, admin)).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}", requireRoles(logger, h.GetUser, admin)).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/status", requireRoles(logger, h.SetUserStatus, admin)).Methods(http.MethodPut)
	private.HandleFunc("/users/{id}", requireRoles(logger, h.DeleteUser, admin)).Methods(http.MethodDelete)

	private.HandleFunc("/terminals", requireRoles(logger, h.CreateTerminal, staff...)).Methods(http.MethodPost)
	private.HandleFunc("/terminals", h.ListTerminals).Methods(http.MethodGet)
	private.HandleFunc("/terminals/summary", requireRoles(logger, h.TerminalSummary, staff...)).Methods(http.MethodGet)
	private.HandleFunc("/terminals/{id}", h.GetTerminal).Methods(http.MethodGet)
	private.HandleFunc("/terminals/{id}", requireRoles(logger, h.UpdateTerminal, staff...)).Methods(http.MethodPut)
	private.HandleFunc("/terminals/{id}", requireRoles(logger, h.DeleteTerminal, admin)).Methods(http.MethodDelete)
	private.HandleFunc("/terminals/{id}/maintenance", requireRoles(logger, h.SetMaintenance, staff...)).Methods(http.MethodPost)

	private.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	private.HandleFunc("/transactions/stats/summary", h.TransactionStats).Methods(http.MethodGet)
	private.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	private.HandleFunc("/transactions/{id}/receipt", h.GetReceipt).Methods(http.MethodGet)
	private.HandleFunc("/transactions/{id}/cancel", requireRoles(logger, h.CancelPayment, staff...)).Methods(http.MethodPost)
	private.HandleFunc("/transactions/{id}/refund", requireRoles(logger, h.RefundPayment, admin)).Methods(http.MethodPost)

	private.HandleFunc("/cards", h.AddCard).Methods(http.MethodPost)
	private.HandleFunc("/cards", h.ListCards).Methods(http.MethodGet)
	private.HandleFunc("/cards/stats/summary", h.CardStats).Methods(http.MethodGet)
	private.HandleFunc("/cards/binding-request", h.BindingRequest).Methods(http.MethodPost)
	private.HandleFunc("/cards/{id}", h.GetCard).Methods(http.MethodGet)
	private.HandleFunc("/cards/{id}", h.UpdateCard).Methods(http.MethodPut)
	private.HandleFunc("/cards/{id}", h.DeleteCard).Methods(http.MethodDelete)
	private.HandleFunc("/cards/{id}/set-primary", h.SetPrimaryCard).Methods(http.MethodPost)
	private.HandleFunc("/cards/{id}/verify", h.VerifyCard).Methods(http.MethodPost)

	private.HandleFunc("/admin/dashboard", requireRoles(logger, h.Dashboard, staff...)).Methods(http.MethodGet)

	return r
}
