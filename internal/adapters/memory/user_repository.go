package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

// UserRepository implements ports.UserRepository in memory
type UserRepository struct {
	s *Store
}

var _ ports.UserRepository = (*UserRepository)(nil)

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func userNotFound(key string) error {
	return fmt.Errorf("user %s: %w", key, domain.ErrUserNotFound)
}

// conflict reports whether another user already holds email or phone.
// Callers hold the lock.
func (r *UserRepository) conflict(u *domain.User) bool {
	for _, other := range r.s.users {
		if other.ID == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) || other.Phone == u.Phone {
			return true
		}
	}
	return false
}

// Create stores a new user; a taken email or phone fails with domain.ErrUserExists
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.conflict(u) {
		return domain.ErrUserExists
	}
	r.s.users[u.ID] = copyUser(u)
	return nil
}

// GetByID returns a user or domain.ErrUserNotFound
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, userNotFound(id)
	}
	return copyUser(u), nil
}

// GetByEmail looks a user up case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, userNotFound(email)
}

// GetByPhone looks a user up by normalized phone
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Phone == phone {
			return copyUser(u), nil
		}
	}
	return nil, userNotFound(phone)
}

// List returns users, oldest first
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	start, end := page(len(all), offset, limit)
	out := make([]*domain.User, 0, end-start)
	for _, u := range all[start:end] {
		out = append(out, copyUser(u))
	}
	return out, nil
}

// Update replaces a stored user
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; !ok {
		return userNotFound(u.ID)
	}
	if r.conflict(u) {
		return domain.ErrUserExists
	}
	r.s.users[u.ID] = copyUser(u)
	return nil
}

// Delete removes a user with their cards. Their transactions stay in the
// ledger without an owner.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return userNotFound(id)
	}
	delete(r.s.users, id)
	for cid, c := range r.s.cards {
		if c.UserID == id {
			delete(r.s.cards, cid)
		}
	}
	for _, t := range r.s.transactions {
		if t.GetUserID() == id {
			t.UserID = nil
		}
	}
	return nil
}

// Counts feeds the admin dashboard
func (r *UserRepository) Counts(ctx context.Context) (*ports.UserCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c := &ports.UserCounts{}
	for _, u := range r.s.users {
		c.Total++
		if u.IsActive {
			c.Active++
		}
		if u.IsVerified {
			c.Verified++
		}
	}
	return c, nil
}
