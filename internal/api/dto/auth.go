package dto

import (
	"github.com/hugh/go-accounts/internal/api/validation"
)

type SignupRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

func (r SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Invalid email format"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}
	if r.FirstName != nil && !validation.IsValidName(*r.FirstName) {
		errors["first_name"] = "First name must be at most 100 characters"
	}
	if r.LastName != nil && !validation.IsValidName(*r.LastName) {
		errors["last_name"] = "Last name must be at most 100 characters"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.RefreshToken == "" {
		errors["refresh_token"] = "Refresh token is required"
	}

	return errors
}

type VerifyRequest struct {
	VerificationCode string `json:"verification_code"`
}

func (r VerifyRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !validation.IsValidVerificationCode(r.VerificationCode) {
		errors["verification_code"] = "Verification code must be 6 digits"
	}

	return errors
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SignupResponse is the created user plus, in demo mode only, the issued code.
type SignupResponse struct {
	UserResponse
	VerificationCode string `json:"verification_code,omitempty"`
}

// ResendResponse carries the code in demo mode only.
type ResendResponse struct {
	Message          string `json:"message"`
	VerificationCode string `json:"verification_code,omitempty"`
}
