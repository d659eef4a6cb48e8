package ports

import (
	"context"

	"github.com/kevin07696/paygo-service/internal/auth"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/shopspring/decimal"
)

// RegisterRequest creates a regular user account
type RegisterRequest struct {
	Email    string
	Phone    string
	FullName string
	Password string
}

// LoginRequest authenticates by email or phone
type LoginRequest struct {
	Login    string
	Password string
}

// LoginResponse pairs the user with freshly issued tokens
type LoginResponse struct {
	User   *domain.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// UpdateProfileRequest changes a user's own profile. Nil means unchanged.
type UpdateProfileRequest struct {
	FullName  *string
	Phone     *string
	AvatarURL *string
	UserID    string
}

// UserStats summarizes a user's activity
type UserStats struct {
	TotalSpent             decimal.Decimal `json:"total_spent"`
	TotalTransactions      int64           `json:"total_transactions"`
	SuccessfulTransactions int64           `json:"successful_transactions"`
	Cards                  int64           `json:"total_cards"`
	ActiveCards            int64           `json:"active_cards"`
}

// UserService defines the business operations for accounts and sessions
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.User, error)

	// Administrative operations
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	SetStatus(ctx context.Context, userID string, active bool) (*domain.User, error)
	Delete(ctx context.Context, actorID, userID string) error

	Stats(ctx context.Context, userID string) (*UserStats, error)
}
