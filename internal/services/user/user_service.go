// Package user handles accounts: registration, login and token refresh,
// profiles and the administrative user operations.
package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/kevin07696/paygo-service/internal/auth"
	"github.com/kevin07696/paygo-service/internal/domain"
	"github.com/kevin07696/paygo-service/internal/domain/ports"
	serviceports "github.com/kevin07696/paygo-service/internal/services/ports"
	"github.com/zoobzio/clockz"
)

const maxListLimit = 1000

// Dependencies for the user service
type Dependencies struct {
	Users        ports.UserRepository
	Transactions ports.TransactionRepository
	Cards        ports.CardRepository
	Tokens       *auth.JWTManager
	Logger       ports.Logger
	Clock        clockz.Clock
}

// Service implements serviceports.UserService
type Service struct {
	users        ports.UserRepository
	transactions ports.TransactionRepository
	cards        ports.CardRepository
	tokens       *auth.JWTManager
	logger       ports.Logger
	clock        clockz.Clock
}

var _ serviceports.UserService = (*Service)(nil)

// NewService creates a new user service
func NewService(deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = clockz.RealClock
	}
	return &Service{
		users:        deps.Users,
		transactions: deps.Transactions,
		cards:        deps.Cards,
		tokens:       deps.Tokens,
		logger:       deps.Logger,
		clock:        deps.Clock,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.Validation("email", "email is not valid")
	}
	return email, nil
}

func validateFullName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if n := len([]rune(name)); n < 2 || n > 100 {
		return "", domain.Validation("full_name", "full name must be 2-100 characters")
	}
	return name, nil
}

// Register creates an active, unverified account with the user role
func (s *Service) Register(ctx context.Context, req serviceports.RegisterRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := domain.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	name, err := validateFullName(req.FullName)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to hash password", err)
	}

	now := s.clock.Now().UTC()
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        phone,
		FullName:     name,
		PasswordHash: hash,
		Role:         domain.UserRoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", ports.String("user_id", u.ID))
	return u, nil
}

// Login authenticates by email or phone and issues a token pair. Unknown
// logins and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req serviceports.LoginRequest) (*serviceports.LoginResponse, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, domain.ErrBadCredentials
	}

	var (
		u   *domain.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = s.users.GetByEmail(ctx, strings.ToLower(login))
	} else {
		phone, perr := domain.NormalizePhone(login)
		if perr != nil {
			return nil, domain.ErrBadCredentials
		}
		u, err = s.users.GetByPhone(ctx, phone)
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrBadCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		s.logger.Warn("Failed login attempt", ports.String("user_id", u.ID))
		return nil, domain.ErrBadCredentials
	}
	if !u.IsActive {
		return nil, domain.ErrUserInactive
	}

	now := s.clock.Now().UTC()
	u.LastLogin = &now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to issue tokens", err)
	}
	s.logger.Info("User logged in", ports.String("user_id", u.ID))
	return &serviceports.LoginResponse{User: u, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The account is
// re-read so role changes and deactivation take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrAuthInvalid
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, domain.ErrUserInactive
	}
	tokens, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to issue tokens", err)
	}
	return tokens, nil
}

// Me returns the caller's account
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Get returns any account
func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile changes the caller's name, phone or avatar
func (s *Service) UpdateProfile(ctx context.Context, req serviceports.UpdateProfileRequest) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name, err := validateFullName(*req.FullName)
		if err != nil {
			return nil, err
		}
		u.FullName = name
	}
	if req.Phone != nil {
		phone, err := domain.NormalizePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		u.Phone = phone
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		if avatar != "" {
			parsed, err := url.Parse(avatar)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return nil, domain.Validation("avatar_url", "avatar url must be absolute")
			}
		}
		u.AvatarURL = avatar
	}
	u.UpdatedAt = s.clock.Now().UTC()

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns accounts, oldest first
func (s *Service) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	if offset < 0 || limit < 0 {
		return nil, domain.Validation("limit", "skip and limit must not be negative")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.users.List(ctx, offset, limit)
}

// SetStatus activates or deactivates an account
func (s *Service) SetStatus(ctx context.Context, userID string, active bool) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	u.UpdatedAt = s.clock.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User status changed",
		ports.String("user_id", u.ID),
		ports.Bool("active", active),
	)
	return u, nil
}

// Delete removes an account. Administrators cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return domain.Validation("user_id", "cannot delete your own account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Warn("User deleted",
		ports.String("user_id", userID),
		ports.String("deleted_by", actorID),
	)
	return nil
}

// Stats summarizes a user's payments and cards
func (s *Service) Stats(ctx context.Context, userID string) (*serviceports.UserStats, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	txns, err := s.transactions.Stats(ctx, ports.TransactionFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("transaction stats for user %s: %w", userID, err)
	}
	cards, err := s.cards.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("card stats for user %s: %w", userID, err)
	}

	return &serviceports.UserStats{
		TotalSpent:             txns.CompletedAmount,
		TotalTransactions:      txns.TotalCount,
		SuccessfulTransactions: txns.CompletedCount,
		Cards:                  cards.Total,
		ActiveCards:            cards.Active,
	}, nil
}
