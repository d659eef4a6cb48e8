package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

// CardRepository implements ports.CardRepository in memory
type CardRepository struct {
	s *Store
}

var _ ports.CardRepository = (*CardRepository)(nil)

func copyCard(c *domain.Card) *domain.Card {
	cp := *c
	return &cp
}

func cardNotFound(id string) error {
	return fmt.Errorf("card %s: %w", id, domain.ErrCardNotFound)
}

// userCards returns the stored cards of one user. Callers hold the lock.
func (r *CardRepository) userCards(userID string) []*domain.Card {
	var out []*domain.Card
	for _, c := range r.s.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

func (r *CardRepository) owned(userID, cardID string) (*domain.Card, error) {
	c, ok := r.s.cards[cardID]
	if !ok || c.UserID != userID {
		return nil, cardNotFound(cardID)
	}
	return c, nil
}

// Add stores a new card and restores the primary invariant
func (r *CardRepository) Add(ctx context.Context, card *domain.Card) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.userCards(card.UserID) {
		if c.Fingerprint == card.Fingerprint {
			return domain.ErrDuplicateCard
		}
	}

	stored := copyCard(card)
	wantPrimary := stored.IsPrimary
	stored.IsPrimary = false
	r.s.cards[stored.ID] = stored

	preferred := ""
	if wantPrimary {
		preferred = stored.ID
	}
	domain.NormalizePrimary(r.userCards(card.UserID), preferred)

	card.IsPrimary = stored.IsPrimary
	return nil
}

// GetByID returns one of the user's cards
func (r *CardRepository) GetByID(ctx context.Context, userID, cardID string) (*domain.Card, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, err := r.owned(userID, cardID)
	if err != nil {
		return nil, err
	}
	return copyCard(c), nil
}

// ListByUser returns the user's cards, primary first then newest first
func (r *CardRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.Card, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Card
	for _, c := range r.userCards(userID) {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, copyCard(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update writes the mutable card fields and restores the primary invariant
func (r *CardRepository) Update(ctx context.Context, card *domain.Card) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, err := r.owned(card.UserID, card.ID)
	if err != nil {
		return err
	}

	cards := r.userCards(card.UserID)
	preferred := domain.PrimaryPreference(cards, card)

	cur.HolderName = card.HolderName
	cur.Type = card.Type
	cur.IsActive = card.IsActive
	cur.IsVerified = card.IsVerified
	cur.LastUsedAt = card.LastUsedAt
	cur.UpdatedAt = card.UpdatedAt
	cur.IsPrimary = card.IsPrimary

	domain.NormalizePrimary(cards, preferred)
	card.IsPrimary = cur.IsPrimary
	return nil
}

// Delete removes a card and reassigns the primary flag if needed
func (r *CardRepository) Delete(ctx context.Context, userID, cardID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.owned(userID, cardID); err != nil {
		return err
	}
	delete(r.s.cards, cardID)
	domain.NormalizePrimary(r.userCards(userID), "")
	return nil
}

// SetPrimary makes an active card the user's primary
func (r *CardRepository) SetPrimary(ctx context.Context, userID, cardID string) (*domain.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, err := r.owned(userID, cardID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, domain.ErrCardInactive
	}
	domain.NormalizePrimary(r.userCards(userID), cardID)
	return copyCard(c), nil
}

// GetPrimary returns the user's active primary card
func (r *CardRepository) GetPrimary(ctx context.Context, userID string) (*domain.Card, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.userCards(userID) {
		if c.IsPrimary && c.IsActive {
			return copyCard(c), nil
		}
	}
	return nil, domain.ErrNoPrimaryCard
}

// Stats aggregates the cards of userID, or of everyone when userID is empty
func (r *CardRepository) Stats(ctx context.Context, userID string) (*ports.CardStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &ports.CardStats{
		ByPaymentSystem: make(map[domain.PaymentSystem]int64),
		ByIssuer:        make(map[domain.Issuer]int64),
	}
	for _, c := range r.s.cards {
		if userID != "" && c.UserID != userID {
			continue
		}
		stats.Total++
		if c.IsActive {
			stats.Active++
		}
		if c.IsVerified {
			stats.Verified++
		}
		stats.ByPaymentSystem[c.PaymentSystem]++
		stats.ByIssuer[c.Issuer]++
	}
	return stats, nil
}
