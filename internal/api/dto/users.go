package dto

import (
	"time"

	"github.com/hugh/go-accounts/internal/database/models"
)

type UserResponse struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FirstName  *string     `json:"first_name"`
	LastName   *string     `json:"last_name"`
	Role       models.Role `json:"role"`
	IsVerified bool        `json:"is_verified"`
	IsActive   bool        `json:"is_active"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ExternalID.String(),
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// UpdateUserRequest is a partial update. Omitted keys are left unchanged;
// null clears a name and is rejected for email.
type UpdateUserRequest struct {
	FirstName Optional[string] `json:"first_name"`
	LastName  Optional[string] `json:"last_name"`
	Email     Optional[string] `json:"email"`
}

type ChangeRoleRequest struct {
	Role models.Role `json:"role"`
}

func (r ChangeRoleRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	} else if !r.Role.Valid() {
		errors["role"] = "Role must be one of: user, admin"
	}

	return errors
}
