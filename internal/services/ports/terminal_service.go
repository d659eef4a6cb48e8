package ports

import (
	"context"

	"github.com/kevin07696/paygo-service/internal/domain"
	domainports "github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// CreateTerminalRequest registers a terminal
type CreateTerminalRequest struct {
	TerminalID       string
	Name             string
	Location         string
	Description      string
	TerminalType     domain.TerminalType
	SupportsNFC      bool
	SupportsQR       bool
	SupportsBiometry bool
}

// UpdateTerminalRequest changes terminal attributes. Nil means unchanged.
type UpdateTerminalRequest struct {
	Name             *string
	Location         *string
	Description      *string
	TerminalType     *domain.TerminalType
	Status           *domain.TerminalStatus
	SupportsNFC      *bool
	SupportsQR       *bool
	SupportsBiometry *bool
	TerminalID       string
}

// TerminalLimits bounds single payments and the daily turnover
type TerminalLimits struct {
	MinAmount  decimal.Decimal `json:"min_amount"`
	MaxAmount  decimal.Decimal `json:"max_amount"`
	DailyLimit decimal.Decimal `json:"daily_limit"`
}

// TerminalTimeouts are in seconds
type TerminalTimeouts struct {
	Payment int `json:"payment_timeout"`
	QR      int `json:"qr_timeout"`
}

// TerminalConfig is what a terminal downloads at boot
type TerminalConfig struct {
	TerminalID     string                 `json:"terminal_id"`
	Currency       string                 `json:"currency"`
	Language       string                 `json:"language"`
	PaymentMethods []domain.PaymentMethod `json:"payment_methods"`
	Limits         TerminalLimits         `json:"limits"`
	Timeouts       TerminalTimeouts       `json:"timeouts"`
}

// TerminalService manages the terminal fleet
type TerminalService interface {
	Create(ctx context.Context, req CreateTerminalRequest) (*domain.Terminal, error)
	Get(ctx context.Context, terminalID string) (*domain.Terminal, error)
	List(ctx context.Context, filter domainports.TerminalFilter) ([]*domain.Terminal, error)
	Update(ctx context.Context, req UpdateTerminalRequest) (*domain.Terminal, error)
	Delete(ctx context.Context, terminalID string) error
	Heartbeat(ctx context.Context, terminalID string, hb domainports.Heartbeat) (*domain.Terminal, error)
	Config(ctx context.Context, terminalID string) (*TerminalConfig, error)
	SetMaintenance(ctx context.Context, terminalID string, enable bool) (*domain.Terminal, error)
	Summary(ctx context.Context) (*domainports.TerminalSummary, error)
	SweepStale(ctx context.Context) (int64, error)
}
