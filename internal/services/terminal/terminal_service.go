// Package terminal manages the terminal fleet: registration, heartbeats,
// configuration downloads and the stale-terminal sweep.
package terminal

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	"github.com/kevin07696/paygo-service/pkg/observability"
	"github.com/shopspring/decimal"
	"github.com/zoobzio/clockz"
)

const (
	maxListLimit = 1000

	paymentTimeoutSeconds = 60
	qrTimeoutSeconds      = 180
	defaultLanguage       = "ru"

	// DefaultStaleAfter is how long an online terminal may stay silent.
	DefaultStaleAfter = 5 * time.Minute
)

var defaultLimits = serviceports.TerminalLimits{
	MinAmount:  decimal.NewFromInt(1),
	MaxAmount:  decimal.NewFromInt(100_000),
	DailyLimit: decimal.NewFromInt(1_000_000),
}

// Service implements serviceports.TerminalService
type Service struct {
	terminals  ports.TerminalRepository
	logger     ports.Logger
	clock      clockz.Clock
	staleAfter time.Duration
}

var _ serviceports.TerminalService = (*Service)(nil)

// NewService creates a new terminal service. staleAfter <= 0 selects
// DefaultStaleAfter.
func NewService(terminals ports.TerminalRepository, logger ports.Logger, clock clockz.Clock, staleAfter time.Duration) *Service {
	if clock == nil {
		clock = clockz.RealClock
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Service{terminals: terminals, logger: logger, clock: clock, staleAfter: staleAfter}
}

// Create registers a terminal in the offline state
func (s *Service) Create(ctx context.Context, req serviceports.CreateTerminalRequest) (*domain.Terminal, error) {
	id, err := domain.NormalizeTerminalID(req.TerminalID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return nil, domain.Validation("name", "name must be 1-100 characters")
	}
	location := strings.TrimSpace(req.Location)
	if location == "" || len(location) > 200 {
		return nil, domain.Validation("location", "location must be 1-200 characters")
	}
	ttype := req.TerminalType
	if ttype == "" {
		ttype = domain.TerminalTypePayment
	}
	if !ttype.IsValid() {
		return nil, domain.Validation("terminal_type", fmt.Sprintf("unknown terminal type %q", ttype))
	}

	now := s.clock.Now().UTC()
	t := &domain.Terminal{
		TerminalID:       id,
		Name:             name,
		Location:         location,
		Description:      req.Description,
		TerminalType:     ttype,
		Status:           domain.TerminalStatusOffline,
		SupportsNFC:      req.SupportsNFC,
		SupportsQR:       req.SupportsQR,
		SupportsBiometry: req.SupportsBiometry,
		TotalAmount:      decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.terminals.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Terminal registered",
		ports.String("terminal_id", t.TerminalID),
		ports.String("type", string(t.TerminalType)),
	)
	return t, nil
}

// Get returns one terminal. The id is matched case-insensitively.
func (s *Service) Get(ctx context.Context, terminalID string) (*domain.Terminal, error) {
	return s.terminals.GetByID(ctx, strings.ToUpper(strings.TrimSpace(terminalID)))
}

// List returns terminals ordered by id
func (s *Service) List(ctx context.Context, filter ports.TerminalFilter) ([]*domain.Terminal, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.Validation("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.TerminalType != "" && !filter.TerminalType.IsValid() {
		return nil, domain.Validation("terminal_type", fmt.Sprintf("unknown terminal type %q", filter.TerminalType))
	}
	if filter.Offset < 0 || filter.Limit < 0 {
		return nil, domain.Validation("limit", "skip and limit must not be negative")
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.terminals.List(ctx, filter)
}

// Update applies the requested changes. Counters are never touched here.
func (s *Service) Update(ctx context.Context, req serviceports.UpdateTerminalRequest) (*domain.Terminal, error) {
	t, err := s.Get(ctx, req.TerminalID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			return nil, domain.Validation("name", "name must be 1-100 characters")
		}
		t.Name = name
	}
	if req.Location != nil {
		location := strings.TrimSpace(*req.Location)
		if location == "" || len(location) > 200 {
			return nil, domain.Validation("location", "location must be 1-200 characters")
		}
		t.Location = location
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.TerminalType != nil {
		if !req.TerminalType.IsValid() {
			return nil, domain.Validation("terminal_type", fmt.Sprintf("unknown terminal type %q", *req.TerminalType))
		}
		t.TerminalType = *req.TerminalType
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, domain.Validation("status", fmt.Sprintf("unknown status %q", *req.Status))
		}
		t.Status = *req.Status
	}
	if req.SupportsNFC != nil {
		t.SupportsNFC = *req.SupportsNFC
	}
	if req.SupportsQR != nil {
		t.SupportsQR = *req.SupportsQR
	}
	if req.SupportsBiometry != nil {
		t.SupportsBiometry = *req.SupportsBiometry
	}
	t.UpdatedAt = s.clock.Now().UTC()

	if err := s.terminals.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a terminal
func (s *Service) Delete(ctx context.Context, terminalID string) error {
	id := strings.ToUpper(strings.TrimSpace(terminalID))
	if err := s.terminals.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("Terminal deleted", ports.String("terminal_id", id))
	return nil
}

// Heartbeat records a terminal check-in. A heartbeat without a status
// reports the terminal online.
func (s *Service) Heartbeat(ctx context.Context, terminalID string, hb ports.Heartbeat) (*domain.Terminal, error) {
	if hb.Status == "" {
		hb.Status = domain.TerminalStatusOnline
	}
	if !hb.Status.IsValid() {
		return nil, domain.Validation("status", fmt.Sprintf("unknown status %q", hb.Status))
	}
	if hb.IPAddress != "" && net.ParseIP(hb.IPAddress) == nil {
		return nil, domain.Validation("ip_address", "ip address is not valid")
	}

	t, err := s.terminals.RecordHeartbeat(ctx, strings.ToUpper(strings.TrimSpace(terminalID)), hb, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	observability.RecordTerminalHeartbeat(string(t.Status))
	return t, nil
}

// Config derives the terminal's runtime configuration from its capabilities
func (s *Service) Config(ctx context.Context, terminalID string) (*serviceports.TerminalConfig, error) {
	t, err := s.Get(ctx, terminalID)
	if err != nil {
		return nil, err
	}

	methods := t.PaymentMethods()
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	return &serviceports.TerminalConfig{
		TerminalID:     t.TerminalID,
		Currency:       domain.DefaultCurrency,
		Language:       defaultLanguage,
		PaymentMethods: methods,
		Limits:         defaultLimits,
		Timeouts: serviceports.TerminalTimeouts{
			Payment: paymentTimeoutSeconds,
			QR:      qrTimeoutSeconds,
		},
	}, nil
}

// SetMaintenance switches a terminal into maintenance, or back online
func (s *Service) SetMaintenance(ctx context.Context, terminalID string, enable bool) (*domain.Terminal, error) {
	status := domain.TerminalStatusOnline
	if enable {
		status = domain.TerminalStatusMaintenance
	}
	t, err := s.Update(ctx, serviceports.UpdateTerminalRequest{TerminalID: terminalID, Status: &status})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Terminal maintenance mode changed",
		ports.String("terminal_id", t.TerminalID),
		ports.Bool("enabled", enable),
	)
	return t, nil
}

// Summary counts terminals by status
func (s *Service) Summary(ctx context.Context) (*ports.TerminalSummary, error) {
	return s.terminals.Summary(ctx)
}

// SweepStale takes online terminals that stopped sending heartbeats offline
func (s *Service) SweepStale(ctx context.Context) (int64, error) {
	n, err := s.terminals.MarkStale(ctx, s.clock.Now().UTC().Add(-s.staleAfter))
	if err != nil {
		return 0, fmt.Errorf("mark stale terminals: %w", err)
	}
	if n > 0 {
		s.logger.Warn("Terminals went silent and were marked offline",
			ports.Int64("count", n),
			ports.Duration("stale_after", s.staleAfter),
		)
		observability.RecordTerminalsMarkedStale(n)
	}
	return n, nil
}
