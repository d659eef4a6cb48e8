package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard is the administrator's overview of the whole system
type Dashboard struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	Users        DashboardUsers      `json:"users"`
	Terminals    DashboardTerminals  `json:"terminals"`
	Transactions DashboardPayments   `json:"transactions"`
	Cards        DashboardCards      `json:"cards"`
	Financial    DashboardFinancials `json:"financial"`
}

// DashboardUsers counts accounts
type DashboardUsers struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Verified int64 `json:"verified"`
}

// DashboardTerminals counts terminals
type DashboardTerminals struct {
	Total  int64 `json:"total"`
	Online int64 `json:"online"`
}

// DashboardPayments counts ledger rows. SuccessRate is a percentage.
type DashboardPayments struct {
	Total       int64   `json:"total"`
	Successful  int64   `json:"successful"`
	SuccessRate float64 `json:"success_rate"`
}

// DashboardCards counts stored cards
type DashboardCards struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// DashboardFinancials sums completed payments
type DashboardFinancials struct {
	TotalVolume   decimal.Decimal `json:"total_volume"`
	MonthlyVolume decimal.Decimal `json:"monthly_volume"`
	DailyVolume   decimal.Decimal `json:"daily_volume"`
}

// AdminService defines the dashboard operations
type AdminService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
}
