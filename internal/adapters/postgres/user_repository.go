package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
)

const userColumns = `id::text, email, phone, full_name, password_hash, avatar_url, role,
	is_active, is_verified, created_at, updated_at, last_login`

// UserRepository implements ports.UserRepository on PostgreSQL
type UserRepository struct {
	db *DBExecutor
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *DBExecutor) *UserRepository {
	return &UserRepository{db: db}
}

func userNotFound(key string) error {
	return fmt.Errorf("user %s: %w", key, domain.ErrUserNotFound)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u      domain.User
		avatar pgtype.Text
		role   string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Phone, &u.FullName, &u.PasswordHash, &avatar, &role,
		&u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	u.AvatarURL = textOf(avatar)
	u.Role = domain.UserRole(role)
	return &u, nil
}

func (r *UserRepository) getBy(ctx context.Context, predicate, key string) (*domain.User, error) {
	u, err := scanUser(r.db.GetDB().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+predicate, key))
	if err != nil {
		if isMissing(err) {
			return nil, userNotFound(key)
		}
		return nil, dbError("failed to get user", err)
	}
	return u, nil
}

// Create stores a new user; a taken email or phone fails with domain.ErrUserExists
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.GetDB().Exec(ctx, `
		INSERT INTO users (
			id, email, phone, full_name, password_hash, avatar_url, role,
			is_active, is_verified, created_at, updated_at, last_login
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Email, u.Phone, u.FullName, u.PasswordHash, nullText(u.AvatarURL), string(u.Role),
		u.IsActive, u.IsVerified, u.CreatedAt, u.UpdatedAt, u.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.ErrUserExists
		}
		return dbError("failed to create user", err)
	}
	return nil
}

// GetByID returns a user or domain.ErrUserNotFound
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail looks a user up case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "lower(email) = lower($1)", email)
}

// GetByPhone looks a user up by normalized phone
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getBy(ctx, "phone = $1", phone)
}

// List returns users, oldest first
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	rows, err := r.db.GetDB().Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limitOrDefault(limit), max(offset, 0))
	if err != nil {
		return nil, dbError("failed to list users", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, dbError("failed to scan users", err)
	}
	return users, nil
}

// Update replaces a stored user
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	tag, err := r.db.GetDB().Exec(ctx, `
		UPDATE users
		SET email = $2, phone = $3, full_name = $4, password_hash = $5, avatar_url = $6, role = $7,
		    is_active = $8, is_verified = $9, updated_at = $10, last_login = $11
		WHERE id = $1`,
		u.ID, u.Email, u.Phone, u.FullName, u.PasswordHash, nullText(u.AvatarURL), string(u.Role),
		u.IsActive, u.IsVerified, u.UpdatedAt, u.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.ErrUserExists
		}
		if isMissing(err) {
			return userNotFound(u.ID)
		}
		return dbError("failed to update user", err)
	}
	if tag.RowsAffected() == 0 {
		return userNotFound(u.ID)
	}
	return nil
}

// Delete removes a user; cards cascade and transactions keep a NULL owner
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.GetDB().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isMissing(err) {
			return userNotFound(id)
		}
		return dbError("failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return userNotFound(id)
	}
	return nil
}

// Counts feeds the admin dashboard
func (r *UserRepository) Counts(ctx context.Context) (*ports.UserCounts, error) {
	c := &ports.UserCounts{}
	err := r.db.GetDB().QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE is_active), count(*) FILTER (WHERE is_verified)
		FROM users`).Scan(&c.Total, &c.Active, &c.Verified)
	if err != nil {
		return nil, dbError("failed to count users", err)
	}
	return c, nil
}
