package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

const terminalColumns = `terminal_id, name, location, description, terminal_type, status,
	supports_nfc, supports_qr, supports_biometry, ip_address, firmware_version, hardware_info,
	total_transactions, total_amount, last_heartbeat, created_at, updated_at`

// TerminalRepository implements ports.TerminalRepository on PostgreSQL
type TerminalRepository struct {
	db *DBExecutor
}

var _ ports.TerminalRepository = (*TerminalRepository)(nil)

// NewTerminalRepository creates a new PostgreSQL terminal repository
func NewTerminalRepository(db *DBExecutor) *TerminalRepository {
	return &TerminalRepository{db: db}
}

func terminalNotFound(id string) error {
	return fmt.Errorf("terminal %s: %w", id, domain.ErrTerminalNotFound)
}

func scanTerminal(row pgx.Row) (*domain.Terminal, error) {
	var (
		t                                       domain.Terminal
		termType, status                        string
		location, description, ip, fw, hardware pgtype.Text
		total                                   pgtype.Numeric
	)
	err := row.Scan(
		&t.TerminalID, &t.Name, &location, &description, &termType, &status,
		&t.SupportsNFC, &t.SupportsQR, &t.SupportsBiometry, &ip, &fw, &hardware,
		&t.TotalTransactions, &total, &t.LastHeartbeat, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Location = textOf(location)
	t.Description = textOf(description)
	t.TerminalType = domain.TerminalType(termType)
	t.Status = domain.TerminalStatus(status)
	t.IPAddress = textOf(ip)
	t.FirmwareVersion = textOf(fw)
	t.HardwareInfo = textOf(hardware)
	t.TotalAmount = pgNumericToDecimal(total)
	return &t, nil
}

// Create stores a new terminal; an existing id fails with domain.ErrTerminalExists
func (r *TerminalRepository) Create(ctx context.Context, t *domain.Terminal) error {
	_, err := r.db.GetDB().Exec(ctx, `
		INSERT INTO terminals (
			terminal_id, name, location, description, terminal_type, status,
			supports_nfc, supports_qr, supports_biometry, ip_address, firmware_version, hardware_info,
			total_transactions, total_amount, last_heartbeat, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.TerminalID, t.Name, nullText(t.Location), nullText(t.Description),
		string(t.TerminalType), string(t.Status),
		t.SupportsNFC, t.SupportsQR, t.SupportsBiometry,
		nullText(t.IPAddress), nullText(t.FirmwareVersion), nullText(t.HardwareInfo),
		t.TotalTransactions, t.TotalAmount.String(), t.LastHeartbeat, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("terminal %s: %w", t.TerminalID, domain.ErrTerminalExists)
		}
		return dbError("failed to create terminal", err)
	}
	return nil
}

// GetByID returns a terminal or domain.ErrTerminalNotFound
func (r *TerminalRepository) GetByID(ctx context.Context, terminalID string) (*domain.Terminal, error) {
	t, err := scanTerminal(r.db.GetDB().QueryRow(ctx,
		`SELECT `+terminalColumns+` FROM terminals WHERE terminal_id = $1`, terminalID))
	if err != nil {
		if isMissing(err) {
			return nil, terminalNotFound(terminalID)
		}
		return nil, dbError("failed to get terminal", err)
	}
	return t, nil
}

// List returns matching terminals ordered by id
func (r *TerminalRepository) List(ctx context.Context, filter ports.TerminalFilter) ([]*domain.Terminal, error) {
	w := &whereBuilder{}
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}
	if filter.TerminalType != "" {
		w.add("terminal_type = $%d", string(filter.TerminalType))
	}
	query := `SELECT ` + terminalColumns + ` FROM terminals` + w.String() +
		` ORDER BY terminal_id LIMIT ` + w.next(limitOrDefault(filter.Limit)) +
		` OFFSET ` + w.next(max(filter.Offset, 0))

	rows, err := r.db.GetDB().Query(ctx, query, w.args...)
	if err != nil {
		return nil, dbError("failed to list terminals", err)
	}
	terminals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Terminal, error) {
		return scanTerminal(row)
	})
	if err != nil {
		return nil, dbError("failed to scan terminals", err)
	}
	return terminals, nil
}

// Update writes the descriptive fields, status and capabilities. Counters
// and heartbeat data are owned by other writers and left alone.
func (r *TerminalRepository) Update(ctx context.Context, t *domain.Terminal) error {
	tag, err := r.db.GetDB().Exec(ctx, `
		UPDATE terminals
		SET name = $2, location = $3, description = $4, terminal_type = $5, status = $6,
		    supports_nfc = $7, supports_qr = $8, supports_biometry = $9, updated_at = $10
		WHERE terminal_id = $1`,
		t.TerminalID, t.Name, nullText(t.Location), nullText(t.Description),
		string(t.TerminalType), string(t.Status),
		t.SupportsNFC, t.SupportsQR, t.SupportsBiometry, t.UpdatedAt,
	)
	if err != nil {
		return dbError("failed to update terminal", err)
	}
	if tag.RowsAffected() == 0 {
		return terminalNotFound(t.TerminalID)
	}
	return nil
}

// Delete removes a terminal
func (r *TerminalRepository) Delete(ctx context.Context, terminalID string) error {
	tag, err := r.db.GetDB().Exec(ctx, `DELETE FROM terminals WHERE terminal_id = $1`, terminalID)
	if err != nil {
		return dbError("failed to delete terminal", err)
	}
	if tag.RowsAffected() == 0 {
		return terminalNotFound(terminalID)
	}
	return nil
}

// RecordHeartbeat stores what the terminal reported; empty fields keep the
// stored value
func (r *TerminalRepository) RecordHeartbeat(ctx context.Context, terminalID string, hb ports.Heartbeat, at time.Time) (*domain.Terminal, error) {
	t, err := scanTerminal(r.db.GetDB().QueryRow(ctx, `
		UPDATE terminals
		SET status = COALESCE(NULLIF($2, ''), status),
		    ip_address = COALESCE(NULLIF($3, ''), ip_address),
		    firmware_version = COALESCE(NULLIF($4, ''), firmware_version),
		    hardware_info = COALESCE(NULLIF($5, ''), hardware_info),
		    last_heartbeat = $6,
		    updated_at = $6
		WHERE terminal_id = $1
		RETURNING `+terminalColumns,
		terminalID, string(hb.Status), hb.IPAddress, hb.FirmwareVersion, hb.HardwareInfo, at,
	))
	if err != nil {
		if isMissing(err) {
			return nil, terminalNotFound(terminalID)
		}
		return nil, dbError("failed to record heartbeat", err)
	}
	return t, nil
}

// Summary counts terminals by status and sums their counters
func (r *TerminalRepository) Summary(ctx context.Context) (*ports.TerminalSummary, error) {
	rows, err := r.db.GetDB().Query(ctx, `
		SELECT status, count(*), sum(total_transactions)::bigint, sum(total_amount)
		FROM terminals
		GROUP BY status`)
	if err != nil {
		return nil, dbError("failed to summarize terminals", err)
	}
	defer rows.Close()

	sum := &ports.TerminalSummary{ByStatus: make(map[domain.TerminalStatus]int64)}
	for rows.Next() {
		var (
			status      string
			count, txns int64
			amount      pgtype.Numeric
		)
		if err := rows.Scan(&status, &count, &txns, &amount); err != nil {
			return nil, dbError("failed to scan terminal summary", err)
		}
		sum.Total += count
		sum.ByStatus[domain.TerminalStatus(status)] = count
		sum.TotalTransactions += txns
		sum.TotalAmount = sum.TotalAmount.Add(pgNumericToDecimal(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to read terminal summary", err)
	}
	return sum, nil
}

// MarkStale takes online terminals silent since before cutoff offline
func (r *TerminalRepository) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.GetDB().Exec(ctx, `
		UPDATE terminals SET status = 'offline'
		WHERE status = 'online' AND COALESCE(last_heartbeat, updated_at) < $1`, cutoff)
	if err != nil {
		return 0, dbError("failed to mark stale terminals", err)
	}
	return tag.RowsAffected(), nil
}
