package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/go-accounts/internal/database/models"
)

// Authenticator defines the account lifecycle operations consumed by the API.
type Authenticator interface {
	Signup(ctx context.Context, input SignupInput) (*SignupResult, error)
	Login(ctx context.Context, input LoginInput) (*TokenPair, error)
	VerifyAccount(ctx context.Context, externalID uuid.UUID, code string) (*models.User, error)
	ResendCode(ctx context.Context, externalID uuid.UUID) (string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	IssueAccess(subject uuid.UUID, email string) (string, error)
	IssueRefresh(subject uuid.UUID) (string, error)
	Decode(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
	_ Hasher        = (*BcryptHasher)(nil)
	_ CodeGenerator = (*RandomCodeGenerator)(nil)
)
