package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	Base
	ExternalID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FirstName    *string   `gorm:"size:100" json:"first_name"`
	LastName     *string   `gorm:"size:100" json:"last_name"`
	Role         Role      `gorm:"size:16;not null;default:'user'" json:"role"`
	IsVerified   bool      `gorm:"not null;index" json:"is_verified"`
	IsActive     bool      `gorm:"not null" json:"is_active"`

	// Set together while a verification code is outstanding.
	VerificationCode         *string    `gorm:"size:6" json:"-"`
	VerificationCodeIssuedAt *time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ExternalID == uuid.Nil {
		u.ExternalID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetVerificationCode attaches a freshly issued code, replacing any prior one.
func (u *User) SetVerificationCode(code string, issuedAt time.Time) {
	u.VerificationCode = &code
	u.VerificationCodeIssuedAt = &issuedAt
}

// MarkVerified flips the account to verified and drops the outstanding code.
func (u *User) MarkVerified() {
	u.IsVerified = true
	u.VerificationCode = nil
	u.VerificationCodeIssuedAt = nil
}
