// Package store persists user records. The GORM implementation backs both
// PostgreSQL in production and SQLite in tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-accounts/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserFilter narrows ListPage and Count. Nil fields are ignored.
type UserFilter struct {
	IsVerified *bool
	Role       *models.Role
}

// UserStore is the persistence contract consumed by the services.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListPage(ctx context.Context, filter UserFilter, offset, limit int) ([]models.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, user *models.User) error
	// EmailExists reports whether email is held by any user other than
	// excludeID. Pass 0 to check against all users.
	EmailExists(ctx context.Context, email string, excludeID uint) (bool, error)
	FindUnverifiedOlderThan(ctx context.Context, cutoff time.Time) ([]models.User, error)
	// BulkDelete removes the listed users that are still unverified and
	// reports how many rows went.
	BulkDelete(ctx context.Context, ids []uint) (int64, error)
}

// Transactor runs fn against a store bound to a single transaction. The
// transaction commits only if fn returns nil.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx UserStore) error) error
}

// Users is a UserStore that can also open transactions.
type Users interface {
	UserStore
	Transactor
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

var _ Users = (*GormUserStore)(nil)

func (s *GormUserStore) InTx(ctx context.Context, fn func(tx UserStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormUserStore{db: tx})
	})
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "creating user")
	}
	return nil
}

func (s *GormUserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormUserStore) GetByExternalID(ctx context.Context, externalID uuid.UUID) (*models.User, error) {
	return s.first(ctx, "external_id = ?", externalID)
}

func (s *GormUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormUserStore) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, translate(err, "loading user")
	}
	return &user, nil
}

func (s *GormUserStore) ListPage(ctx context.Context, filter UserFilter, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := s.filtered(ctx, filter).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *GormUserStore) Count(ctx context.Context, filter UserFilter) (int64, error) {
	var total int64
	if err := s.filtered(ctx, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return total, nil
}

func (s *GormUserStore) filtered(ctx context.Context, filter UserFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.IsVerified != nil {
		query = query.Where("is_verified = ?", *filter.IsVerified)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	return query
}

// Update writes every column of user, including zero values, so cleared
// pointers become NULL.
func (s *GormUserStore) Update(ctx context.Context, user *models.User) error {
	result := s.db.WithContext(ctx).Model(user).Select("*").Omit("created_at").Updates(user)
	if result.Error != nil {
		return translate(result.Error, "updating user")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormUserStore) Delete(ctx context.Context, user *models.User) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, user.ID)
	if result.Error != nil {
		return fmt.Errorf("deleting user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormUserStore) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return n > 0, nil
}

func (s *GormUserStore) FindUnverifiedOlderThan(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("is_verified = ? AND created_at < ?", false, cutoff).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("finding unverified users: %w", err)
	}
	return users, nil
}

func (s *GormUserStore) BulkDelete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).
		Where("id IN ? AND is_verified = ?", ids, false).
		Delete(&models.User{})
	if result.Error != nil {
		return 0, fmt.Errorf("bulk deleting users: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
