package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/salesapi/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// UserRole is the coarse permission level of an API user
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleManager  UserRole = "manager"
	UserRoleCustomer UserRole = "customer"
)

// IsValid checks if the role is known
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleManager, UserRoleCustomer:
		return true
	}
	return false
}

// Password cost for bcrypt
const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is an account allowed to call the API
type User struct {
	shared.BaseAggregateRoot
	Email        string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	LastLoginAt  *time.Time
}

// NewActiveUser creates an active user with a bcrypt-hashed password
func NewActiveUser(email, password string, role UserRole, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown user role")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		Status:            UserStatusActive,
	}, nil
}

// IsActive reports whether the user may log in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Suspend blocks the user from logging in
func (u *User) Suspend(now time.Time) {
	u.Status = UserStatusSuspended
	u.UpdatedAt = now
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// RecordLogin stamps a successful login
func (u *User) RecordLogin(now time.Time) {
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
