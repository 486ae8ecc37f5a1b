// Package users implements authorization-gated profile management.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/hugh/go-accounts/internal/api/dto"
	"github.com/hugh/go-accounts/internal/api/validation"
	"github.com/hugh/go-accounts/internal/apperr"
	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/internal/store"
)

type Service struct {
	users  store.Users
	logger *slog.Logger
}

func NewService(users store.Users, logger *slog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

type ListInput struct {
	Page       int
	PageSize   int
	IsVerified *bool
	Role       *models.Role
}

type Page struct {
	Users    []models.User
	Total    int64
	Page     int
	PageSize int
}

// UpdateInput applies only the fields that are Set.
type UpdateInput struct {
	FirstName dto.Optional[string]
	LastName  dto.Optional[string]
	Email     dto.Optional[string]
}

// Me returns the requester's own profile.
func (s *Service) Me(requester *models.User) *models.User {
	return requester
}

func (s *Service) List(ctx context.Context, requester *models.User, input ListInput) (*Page, error) {
	if !requester.IsAdmin() {
		return nil, apperr.Forbidden("only admins can list users")
	}
	if input.Page < 1 {
		return nil, apperr.Validation("page", "must be at least 1")
	}
	if input.PageSize < 1 || input.PageSize > dto.MaxPageSize {
		return nil, apperr.Validation("page_size", "must be between 1 and 100")
	}
	if input.Page-1 > math.MaxInt/input.PageSize {
		return nil, apperr.Validation("page", "is too large")
	}
	if input.Role != nil && !input.Role.Valid() {
		return nil, apperr.Validation("role", "must be one of: user, admin")
	}

	filter := store.UserFilter{IsVerified: input.IsVerified, Role: input.Role}
	params := dto.PaginationParams{Page: input.Page, PageSize: input.PageSize}

	users, err := s.users.ListPage(ctx, filter, params.Offset(), params.PageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Page{Users: users, Total: total, Page: params.Page, PageSize: params.PageSize}, nil
}

func (s *Service) Get(ctx context.Context, requester *models.User, externalID uuid.UUID) (*models.User, error) {
	if !requester.IsAdmin() {
		return nil, apperr.Forbidden("only admins can look up other users")
	}
	return s.load(ctx, s.users, externalID)
}

func (s *Service) Update(ctx context.Context, requester *models.User, externalID uuid.UUID, input UpdateInput) (*models.User, error) {
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	var updated *models.User
	err := s.users.InTx(ctx, func(tx store.UserStore) error {
		target, err := s.load(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if !canModify(requester, target) {
			return apperr.Forbidden("you can only update your own profile")
		}

		if input.Email.Set && input.Email.Value != target.Email {
			taken, err := tx.EmailExists(ctx, input.Email.Value, target.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.ErrEmailInUse
			}
			target.Email = input.Email.Value
		}
		if input.FirstName.Set {
			target.FirstName = input.FirstName.Ptr()
		}
		if input.LastName.Set {
			target.LastName = input.LastName.Ptr()
		}

		if err := tx.Update(ctx, target); err != nil {
			return err
		}
		updated = target
		return nil
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.ErrEmailInUse
	}
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, requester *models.User, externalID uuid.UUID) error {
	if !requester.IsAdmin() {
		return apperr.Forbidden("only admins can delete users")
	}

	target, err := s.load(ctx, s.users, externalID)
	if err != nil {
		return err
	}
	if target.ID == requester.ID {
		return apperr.ErrSelfDeletion
	}

	if err := s.users.Delete(ctx, target); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", target.ExternalID,
		"admin_id", requester.ExternalID,
	)
	return nil
}

func (s *Service) Deactivate(ctx context.Context, requester *models.User, externalID uuid.UUID) (*models.User, error) {
	return s.mutate(ctx, externalID, func(target *models.User) error {
		if !canModify(requester, target) {
			return apperr.Forbidden("you can only deactivate your own account")
		}
		target.IsActive = false
		return nil
	})
}

func (s *Service) Activate(ctx context.Context, requester *models.User, externalID uuid.UUID) (*models.User, error) {
	if !requester.IsAdmin() {
		return nil, apperr.Forbidden("only admins can activate users")
	}
	return s.mutate(ctx, externalID, func(target *models.User) error {
		target.IsActive = true
		return nil
	})
}

func (s *Service) ChangeRole(ctx context.Context, requester *models.User, externalID uuid.UUID, role models.Role) (*models.User, error) {
	if !requester.IsAdmin() {
		return nil, apperr.Forbidden("only admins can change roles")
	}
	if !role.Valid() {
		return nil, apperr.Validation("role", "must be one of: user, admin")
	}

	user, err := s.mutate(ctx, externalID, func(target *models.User) error {
		target.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user role changed",
		"user_id", user.ExternalID,
		"role", role,
		"admin_id", requester.ExternalID,
	)
	return user, nil
}

// mutate loads the target, applies fn and persists the result in one
// transaction.
func (s *Service) mutate(ctx context.Context, externalID uuid.UUID, fn func(*models.User) error) (*models.User, error) {
	var updated *models.User
	err := s.users.InTx(ctx, func(tx store.UserStore) error {
		target, err := s.load(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if err := fn(target); err != nil {
			return err
		}
		if err := tx.Update(ctx, target); err != nil {
			return err
		}
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) load(ctx context.Context, users store.UserStore, externalID uuid.UUID) (*models.User, error) {
	user, err := users.GetByExternalID(ctx, externalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

func canModify(requester, target *models.User) bool {
	return requester.ID == target.ID || requester.IsAdmin()
}

func validateUpdate(input UpdateInput) error {
	if input.Email.Set {
		if input.Email.Null {
			return apperr.Validation("email", "cannot be null")
		}
		if !validation.IsValidEmail(input.Email.Value) {
			return apperr.Validation("email", "Invalid email format")
		}
	}
	if input.FirstName.Set && !input.FirstName.Null && !validation.IsValidName(input.FirstName.Value) {
		return apperr.Validation("first_name", "must be at most 100 characters")
	}
	if input.LastName.Set && !input.LastName.Null && !validation.IsValidName(input.LastName.Value) {
		return apperr.Validation("last_name", "must be at most 100 characters")
	}
	return nil
}
