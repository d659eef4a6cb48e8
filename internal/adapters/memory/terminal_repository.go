package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// TerminalRepository implements ports.TerminalRepository in memory
type TerminalRepository struct {
	s *Store
}

var _ ports.TerminalRepository = (*TerminalRepository)(nil)

func copyTerminal(t *domain.Terminal) *domain.Terminal {
	c := *t
	return &c
}

func terminalNotFound(id string) error {
	return fmt.Errorf("terminal %s: %w", id, domain.ErrTerminalNotFound)
}

// Create stores a new terminal; an existing id fails with domain.ErrTerminalExists
func (r *TerminalRepository) Create(ctx context.Context, t *domain.Terminal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.terminals[t.TerminalID]; ok {
		return fmt.Errorf("terminal %s: %w", t.TerminalID, domain.ErrTerminalExists)
	}
	r.s.terminals[t.TerminalID] = copyTerminal(t)
	return nil
}

// GetByID returns a terminal or domain.ErrTerminalNotFound
func (r *TerminalRepository) GetByID(ctx context.Context, terminalID string) (*domain.Terminal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.terminals[terminalID]
	if !ok {
		return nil, terminalNotFound(terminalID)
	}
	return copyTerminal(t), nil
}

// List returns matching terminals ordered by id
func (r *TerminalRepository) List(ctx context.Context, filter ports.TerminalFilter) ([]*domain.Terminal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var all []*domain.Terminal
	for _, t := range r.s.terminals {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.TerminalType != "" && t.TerminalType != filter.TerminalType {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TerminalID < all[j].TerminalID })

	start, end := page(len(all), filter.Offset, filter.Limit)
	out := make([]*domain.Terminal, 0, end-start)
	for _, t := range all[start:end] {
		out = append(out, copyTerminal(t))
	}
	return out, nil
}

// Update writes the descriptive fields, status and capabilities. Counters
// and heartbeat data are owned by other writers and left alone.
func (r *TerminalRepository) Update(ctx context.Context, t *domain.Terminal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.terminals[t.TerminalID]
	if !ok {
		return terminalNotFound(t.TerminalID)
	}
	cur.Name = t.Name
	cur.Location = t.Location
	cur.Description = t.Description
	cur.TerminalType = t.TerminalType
	cur.Status = t.Status
	cur.SupportsNFC = t.SupportsNFC
	cur.SupportsQR = t.SupportsQR
	cur.SupportsBiometry = t.SupportsBiometry
	cur.UpdatedAt = t.UpdatedAt
	return nil
}

// Delete removes a terminal
func (r *TerminalRepository) Delete(ctx context.Context, terminalID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.terminals[terminalID]; !ok {
		return terminalNotFound(terminalID)
	}
	delete(r.s.terminals, terminalID)
	return nil
}

// RecordHeartbeat stores what the terminal reported about itself
func (r *TerminalRepository) RecordHeartbeat(ctx context.Context, terminalID string, hb ports.Heartbeat, at time.Time) (*domain.Terminal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.terminals[terminalID]
	if !ok {
		return nil, terminalNotFound(terminalID)
	}
	if hb.Status != "" {
		t.Status = hb.Status
	}
	if hb.IPAddress != "" {
		t.IPAddress = hb.IPAddress
	}
	if hb.FirmwareVersion != "" {
		t.FirmwareVersion = hb.FirmwareVersion
	}
	if hb.HardwareInfo != "" {
		t.HardwareInfo = hb.HardwareInfo
	}
	t.LastHeartbeat = &at
	t.UpdatedAt = at
	return copyTerminal(t), nil
}

// Summary counts terminals by status and sums their counters
func (r *TerminalRepository) Summary(ctx context.Context) (*ports.TerminalSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sum := &ports.TerminalSummary{
		ByStatus:    make(map[domain.TerminalStatus]int64),
		TotalAmount: decimal.Zero,
	}
	for _, t := range r.s.terminals {
		sum.Total++
		sum.ByStatus[t.Status]++
		sum.TotalTransactions += t.TotalTransactions
		sum.TotalAmount = sum.TotalAmount.Add(t.TotalAmount)
	}
	return sum, nil
}

// MarkStale takes online terminals silent since before cutoff offline
func (r *TerminalRepository) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, t := range r.s.terminals {
		if t.Status != domain.TerminalStatusOnline {
			continue
		}
		seen := t.UpdatedAt
		if t.LastHeartbeat != nil {
			seen = *t.LastHeartbeat
		}
		if seen.Before(cutoff) {
			t.Status = domain.TerminalStatusOffline
			n++
		}
	}
	return n, nil
}
