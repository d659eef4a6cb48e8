package domain

import (
	"strings"
	"time"
	"unicode"
)

// UserRole controls access to administrative operations
type UserRole string

const (
	UserRoleUser     UserRole = "user"
	UserRoleAdmin    UserRole = "admin"
	UserRoleOperator UserRole = "operator"
)

// User is an account that owns cards and may pay with biometry
type User struct {
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	Role         UserRole   `json:"role"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
}

// IsValid reports whether r is a known role
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin, UserRoleOperator:
		return true
	}
	return false
}

// IsAdmin returns true for administrators
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// IsStaff returns true for administrators and operators
func (u *User) IsStaff() bool {
	return u.Role == UserRoleAdmin || u.Role == UserRoleOperator
}

// NormalizePhone strips formatting from a Russian phone number and requires
// eleven digits starting with 7.
func NormalizePhone(phone string) (string, error) {
	r := strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "")
	p := r.Replace(phone)
	if len(p) != 11 || !strings.HasPrefix(p, "7") {
		return "", Validation("phone", "phone must be a Russian number of 11 digits starting with 7")
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return "", Validation("phone", "phone must contain digits only")
		}
	}
	return p, nil
}

// ValidatePassword requires at least 8 characters with letters and digits.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return Validation("password", "password must be at least 8 characters")
	}
	var hasDigit, hasLetter bool
	for _, c := range password {
		switch {
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsLetter(c):
			hasLetter = true
		}
	}
	if !hasDigit {
		return Validation("password", "password must contain digits")
	}
	if !hasLetter {
		return Validation("password", "password must contain letters")
	}
	return nil
}
