package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

const cardColumns = `id::text, user_id::text, card_token, fingerprint, card_mask, card_holder_name,
	payment_system, bank_issuer, card_type, expiry_month, expiry_year,
	is_active, is_primary, is_verified, created_at, updated_at, last_used_at`

// CardRepository implements ports.CardRepository on PostgreSQL. Writes lock
// the owning user row, settle the primary flag in Go and write the flags
// back clear-first so the one-primary index never sees two.
type CardRepository struct {
	db *DBExecutor
}

var _ ports.CardRepository = (*CardRepository)(nil)

// NewCardRepository creates a new PostgreSQL card repository
func NewCardRepository(db *DBExecutor) *CardRepository {
	return &CardRepository{db: db}
}

func cardNotFound(id string) error {
	return fmt.Errorf("card %s: %w", id, domain.ErrCardNotFound)
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var (
		c                          domain.Card
		paymentSystem, issuer, typ string
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.Token, &c.Fingerprint, &c.Mask, &c.HolderName,
		&paymentSystem, &issuer, &typ, &c.ExpiryMonth, &c.ExpiryYear,
		&c.IsActive, &c.IsPrimary, &c.IsVerified, &c.CreatedAt, &c.UpdatedAt, &c.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	c.PaymentSystem = domain.PaymentSystem(paymentSystem)
	c.Issuer = domain.Issuer(issuer)
	c.Type = domain.CardType(typ)
	return &c, nil
}

func collectCards(rows pgx.Rows) ([]*domain.Card, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Card, error) {
		return scanCard(row)
	})
}

// lockUser serializes card writes per user
func lockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id::text FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if isMissing(err) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		return dbError("failed to lock user", err)
	}
	return nil
}

func userCards(ctx context.Context, q DBTX, userID string) ([]*domain.Card, error) {
	rows, err := q.Query(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = $1`, userID)
	if err != nil {
		return nil, dbError("failed to load cards", err)
	}
	cards, err := collectCards(rows)
	if err != nil {
		return nil, dbError("failed to scan cards", err)
	}
	return cards, nil
}

func findCard(cards []*domain.Card, id string) *domain.Card {
	for _, c := range cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func primaryID(cards []*domain.Card) string {
	for _, c := range cards {
		if c.IsPrimary {
			return c.ID
		}
	}
	return ""
}

// clearPrimary drops the flag from every card of the user except keep
func clearPrimary(ctx context.Context, tx pgx.Tx, userID, keep string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE cards SET is_primary = false, updated_at = $3
		WHERE user_id = $1 AND is_primary AND id::text <> $2`, userID, keep, at)
	if err != nil {
		return dbError("failed to clear primary card", err)
	}
	return nil
}

func markPrimary(ctx context.Context, tx pgx.Tx, cardID string, at time.Time) error {
	if cardID == "" {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE cards SET is_primary = true, updated_at = $2
		WHERE id = $1 AND NOT is_primary`, cardID, at)
	if err != nil {
		return dbError("failed to set primary card", err)
	}
	return nil
}

// Add stores a new card and restores the primary invariant
func (r *CardRepository) Add(ctx context.Context, card *domain.Card) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUser(ctx, tx, card.UserID); err != nil {
			return err
		}
		cards, err := userCards(ctx, tx, card.UserID)
		if err != nil {
			return err
		}
		for _, c := range cards {
			if c.Fingerprint == card.Fingerprint {
				return domain.ErrDuplicateCard
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO cards (
				id, user_id, card_token, fingerprint, card_mask, card_holder_name,
				payment_system, bank_issuer, card_type, expiry_month, expiry_year,
				is_active, is_primary, is_verified, created_at, updated_at, last_used_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13, $14, $15, $16)`,
			card.ID, card.UserID, card.Token, card.Fingerprint, card.Mask, card.HolderName,
			string(card.PaymentSystem), string(card.Issuer), string(card.Type), card.ExpiryMonth, card.ExpiryYear,
			card.IsActive, card.IsVerified, card.CreatedAt, card.UpdatedAt, card.LastUsedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "fingerprint") {
				return domain.ErrDuplicateCard
			}
			return dbError("failed to insert card", err)
		}

		stored := *card
		preferred := ""
		if stored.IsPrimary {
			preferred = stored.ID
		}
		stored.IsPrimary = false
		cards = append(cards, &stored)
		domain.NormalizePrimary(cards, preferred)

		primary := primaryID(cards)
		if err := clearPrimary(ctx, tx, card.UserID, primary, card.UpdatedAt); err != nil {
			return err
		}
		if err := markPrimary(ctx, tx, primary, card.UpdatedAt); err != nil {
			return err
		}
		card.IsPrimary = stored.IsPrimary
		return nil
	})
}

// GetByID returns one of the user's cards
func (r *CardRepository) GetByID(ctx context.Context, userID, cardID string) (*domain.Card, error) {
	c, err := scanCard(r.db.GetDB().QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1 AND user_id = $2`, cardID, userID))
	if err != nil {
		if isMissing(err) {
			return nil, cardNotFound(cardID)
		}
		return nil, dbError("failed to get card", err)
	}
	return c, nil
}

// ListByUser returns the user's cards, primary first then newest first
func (r *CardRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.Card, error) {
	rows, err := r.db.GetDB().Query(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE user_id::text = $1 AND (is_active OR NOT $2)
		ORDER BY is_primary DESC, created_at DESC`, userID, activeOnly)
	if err != nil {
		return nil, dbError("failed to list cards", err)
	}
	cards, err := collectCards(rows)
	if err != nil {
		return nil, dbError("failed to scan cards", err)
	}
	return cards, nil
}

// Update writes the mutable card fields and restores the primary invariant
func (r *CardRepository) Update(ctx context.Context, card *domain.Card) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUser(ctx, tx, card.UserID); err != nil {
			if domain.IsNotFoundError(err) {
				return cardNotFound(card.ID)
			}
			return err
		}
		cards, err := userCards(ctx, tx, card.UserID)
		if err != nil {
			return err
		}
		cur := findCard(cards, card.ID)
		if cur == nil {
			return cardNotFound(card.ID)
		}

		preferred := domain.PrimaryPreference(cards, card)
		cur.IsActive = card.IsActive
		cur.IsPrimary = card.IsPrimary
		domain.NormalizePrimary(cards, preferred)
		primary := primaryID(cards)

		if err := clearPrimary(ctx, tx, card.UserID, primary, card.UpdatedAt); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE cards
			SET card_holder_name = $2, card_type = $3, is_active = $4, is_verified = $5,
			    last_used_at = $6, updated_at = $7, is_primary = $8
			WHERE id = $1`,
			card.ID, card.HolderName, string(card.Type), card.IsActive, card.IsVerified,
			card.LastUsedAt, card.UpdatedAt, cur.IsPrimary,
		)
		if err != nil {
			return dbError("failed to update card", err)
		}
		if err := markPrimary(ctx, tx, primary, card.UpdatedAt); err != nil {
			return err
		}
		card.IsPrimary = cur.IsPrimary
		return nil
	})
}

// Delete removes a card and reassigns the primary flag if needed
func (r *CardRepository) Delete(ctx context.Context, userID, cardID string) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			if domain.IsNotFoundError(err) {
				return cardNotFound(cardID)
			}
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM cards WHERE id = $1 AND user_id = $2`, cardID, userID)
		if err != nil {
			if isMissing(err) {
				return cardNotFound(cardID)
			}
			return dbError("failed to delete card", err)
		}
		if tag.RowsAffected() == 0 {
			return cardNotFound(cardID)
		}

		rest, err := userCards(ctx, tx, userID)
		if err != nil {
			return err
		}
		domain.NormalizePrimary(rest, "")
		return markPrimary(ctx, tx, primaryID(rest), time.Now().UTC())
	})
}

// SetPrimary makes an active card the user's primary
func (r *CardRepository) SetPrimary(ctx context.Context, userID, cardID string) (*domain.Card, error) {
	var result *domain.Card
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			if domain.IsNotFoundError(err) {
				return cardNotFound(cardID)
			}
			return err
		}
		cards, err := userCards(ctx, tx, userID)
		if err != nil {
			return err
		}
		c := findCard(cards, cardID)
		if c == nil {
			return cardNotFound(cardID)
		}
		if !c.IsActive {
			return domain.ErrCardInactive
		}

		now := time.Now().UTC()
		if err := clearPrimary(ctx, tx, userID, cardID, now); err != nil {
			return err
		}
		if err := markPrimary(ctx, tx, cardID, now); err != nil {
			return err
		}
		c.IsPrimary = true
		result = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetPrimary returns the user's active primary card
func (r *CardRepository) GetPrimary(ctx context.Context, userID string) (*domain.Card, error) {
	c, err := scanCard(r.db.GetDB().QueryRow(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE user_id::text = $1 AND is_primary AND is_active`, userID))
	if err != nil {
		if isMissing(err) {
			return nil, domain.ErrNoPrimaryCard
		}
		return nil, dbError("failed to get primary card", err)
	}
	return c, nil
}

// Stats aggregates the cards of userID, or of everyone when userID is empty
func (r *CardRepository) Stats(ctx context.Context, userID string) (*ports.CardStats, error) {
	rows, err := r.db.GetDB().Query(ctx, `
		SELECT payment_system, bank_issuer, count(*),
		       count(*) FILTER (WHERE is_active), count(*) FILTER (WHERE is_verified)
		FROM cards
		WHERE $1 = '' OR user_id::text = $1
		GROUP BY payment_system, bank_issuer`, userID)
	if err != nil {
		return nil, dbError("failed to aggregate cards", err)
	}
	defer rows.Close()

	stats := &ports.CardStats{
		ByPaymentSystem: make(map[domain.PaymentSystem]int64),
		ByIssuer:        make(map[domain.Issuer]int64),
	}
	for rows.Next() {
		var (
			paymentSystem, issuer   string
			total, active, verified int64
		)
		if err := rows.Scan(&paymentSystem, &issuer, &total, &active, &verified); err != nil {
			return nil, dbError("failed to scan card stats", err)
		}
		stats.Total += total
		stats.Active += active
		stats.Verified += verified
		stats.ByPaymentSystem[domain.PaymentSystem(paymentSystem)] += total
		stats.ByIssuer[domain.Issuer(issuer)] += total
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to read card stats", err)
	}
	return stats, nil
}
