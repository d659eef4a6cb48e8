// Package admin builds the administrator dashboard from the repositories.
package admin

import (
	"context"
	"fmt"
	"math"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	"github.com/kevin07696/paygo-service/pkg/timeutil"
	"github.com/zoobzio/clockz"
)

// Service implements serviceports.AdminService
type Service struct {
	users        ports.UserRepository
	terminals    ports.TerminalRepository
	transactions ports.TransactionRepository
	cards        ports.CardRepository
	clock        clockz.Clock
}

var _ serviceports.AdminService = (*Service)(nil)

// NewService creates a new admin service
func NewService(users ports.UserRepository, terminals ports.TerminalRepository, transactions ports.TransactionRepository, cards ports.CardRepository, clock clockz.Clock) *Service {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Service{
		users:        users,
		terminals:    terminals,
		transactions: transactions,
		cards:        cards,
		clock:        clock,
	}
}

// Dashboard aggregates users, terminals, payments and cards. Monthly and
// daily volumes are counted from the start of the current UTC month and day.
func (s *Service) Dashboard(ctx context.Context) (*serviceports.Dashboard, error) {
	now := s.clock.Now().UTC()
	dayStart := timeutil.StartOfDay(now)
	monthStart := timeutil.StartOfMonth(now)

	users, err := s.users.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	terminals, err := s.terminals.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarize terminals: %w", err)
	}
	all, err := s.transactions.Stats(ctx, ports.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("transaction stats: %w", err)
	}
	monthly, err := s.transactions.Stats(ctx, ports.TransactionFilter{DateFrom: &monthStart})
	if err != nil {
		return nil, fmt.Errorf("monthly transaction stats: %w", err)
	}
	daily, err := s.transactions.Stats(ctx, ports.TransactionFilter{DateFrom: &dayStart})
	if err != nil {
		return nil, fmt.Errorf("daily transaction stats: %w", err)
	}
	cards, err := s.cards.Stats(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("card stats: %w", err)
	}

	return &serviceports.Dashboard{
		GeneratedAt: now,
		Users: serviceports.DashboardUsers{
			Total:    users.Total,
			Active:   users.Active,
			Verified: users.Verified,
		},
		Terminals: serviceports.DashboardTerminals{
			Total:  terminals.Total,
			Online: terminals.ByStatus[domain.TerminalStatusOnline],
		},
		Transactions: serviceports.DashboardPayments{
			Total:       all.TotalCount,
			Successful:  all.CompletedCount,
			SuccessRate: successRate(all.CompletedCount, all.TotalCount),
		},
		Cards: serviceports.DashboardCards{
			Total:  cards.Total,
			Active: cards.Active,
		},
		Financial: serviceports.DashboardFinancials{
			TotalVolume:   all.CompletedAmount,
			MonthlyVolume: monthly.CompletedAmount,
			DailyVolume:   daily.CompletedAmount,
		},
	}, nil
}

// successRate is a percentage rounded to two places
func successRate(ok, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(ok)/float64(total)*10000) / 100
}
