package auth

import (
	"context"
	"errors"

	"github.com/hugh/go-accounts/internal/api/validation"
	"github.com/hugh/go-accounts/internal/apperr"
	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/internal/store"
)

// EnsureAdmin creates a verified admin account for email unless the email is
// already registered, in which case the existing user is returned untouched
// and created is false.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (user *models.User, created bool, err error) {
	if !validation.IsValidEmail(email) {
		return nil, false, apperr.Validation("email", "Invalid email format")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, false, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, err
	}

	user = &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsVerified:   true,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, false, apperr.ErrDuplicateEmail
		}
		return nil, false, err
	}

	s.logger.InfoContext(ctx, "admin account created", "user_id", user.ExternalID)
	return user, true, nil
}
