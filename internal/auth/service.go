package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-accounts/internal/api/validation"
	"github.com/hugh/go-accounts/internal/apperr"
	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/internal/notify"
	"github.com/hugh/go-accounts/internal/store"
)

const (
	// DefaultCodeExpiry applies when Config.CodeExpiry is unset.
	DefaultCodeExpiry = 3 * time.Minute
	tokenTypeBearer   = "bearer"
)

// Config holds the verification settings of the auth service.
type Config struct {
	// CodeExpiry is how long a verification code stays valid after issuance.
	CodeExpiry time.Duration
	// ExposeCode returns issued codes to the caller. Demo mode only; in
	// production codes leave the process solely through the sink.
	ExposeCode bool
}

// Service implements the account lifecycle over a user store.
type Service struct {
	users  store.Users
	tokens TokenService
	hasher Hasher
	codes  CodeGenerator
	sink   notify.Sink
	logger *slog.Logger
	cfg    Config
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option customizes a Service at construction.
type Option func(*Service)

// WithClock overrides the time source used for code issuance and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeGenerator replaces the random verification code source.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *Service) { s.codes = g }
}

// WithHasher replaces the default bcrypt hasher.
func WithHasher(h Hasher) Option {
	return func(s *Service) { s.hasher = h }
}

func NewService(users store.Users, tokens TokenService, sink notify.Sink, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if cfg.CodeExpiry <= 0 {
		cfg.CodeExpiry = DefaultCodeExpiry
	}
	s := &Service{
		users:  users,
		tokens: tokens,
		hasher: defaultHasher,
		codes:  NewCodeGenerator(),
		sink:   sink,
		logger: logger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

type LoginInput struct {
	Email    string
	Password string
}

// SignupResult carries the new user. Code is empty unless ExposeCode is set.
type SignupResult struct {
	User *models.User
	Code string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (s *Service) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	if !validation.IsValidEmail(input.Email) {
		return nil, apperr.Validation("email", "Invalid email format")
	}
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := validateName("first_name", input.FirstName); err != nil {
		return nil, err
	}
	if err := validateName("last_name", input.LastName); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.Generate()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         models.RoleUser,
		IsVerified:   false,
		IsActive:     true,
	}
	user.SetVerificationCode(code, s.now())

	err = s.users.InTx(ctx, func(tx store.UserStore) error {
		exists, err := tx.EmailExists(ctx, input.Email, 0)
		if err != nil {
			return err
		}
		if exists {
			return apperr.ErrDuplicateEmail
		}
		return tx.Create(ctx, user)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ExternalID)
	s.dispatch(ctx, user.Email, code)

	return &SignupResult{User: user, Code: s.exposed(code)}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, input.Email)
	if errors.Is(err, store.ErrNotFound) {
		// Burn a comparison so unknown emails take as long as wrong passwords.
		s.hasher.Verify(input.Password, s.timingHash())
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperr.ErrAccountDisabled
	}

	return s.issuePair(user)
}

func (s *Service) VerifyAccount(ctx context.Context, externalID uuid.UUID, code string) (*models.User, error) {
	var verified *models.User
	err := s.users.InTx(ctx, func(tx store.UserStore) error {
		user, err := loadUser(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if user.IsVerified {
			return apperr.ErrAlreadyVerified
		}
		if user.VerificationCode == nil || user.VerificationCodeIssuedAt == nil {
			return apperr.ErrInvalidCode
		}
		if subtle.ConstantTimeCompare([]byte(*user.VerificationCode), []byte(code)) != 1 {
			return apperr.ErrInvalidCode
		}
		if !s.now().Before(user.VerificationCodeIssuedAt.Add(s.cfg.CodeExpiry)) {
			return apperr.ErrCodeExpired
		}

		user.MarkVerified()
		if err := tx.Update(ctx, user); err != nil {
			return err
		}
		verified = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user verified", "user_id", verified.ExternalID)
	return verified, nil
}

// ResendCode replaces any outstanding code. Concurrent calls are
// last-write-wins.
func (s *Service) ResendCode(ctx context.Context, externalID uuid.UUID) (string, error) {
	code, err := s.codes.Generate()
	if err != nil {
		return "", err
	}

	var email string
	err = s.users.InTx(ctx, func(tx store.UserStore) error {
		user, err := loadUser(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if user.IsVerified {
			return apperr.ErrAlreadyVerified
		}
		user.SetVerificationCode(code, s.now())
		if err := tx.Update(ctx, user); err != nil {
			return err
		}
		email = user.Email
		return nil
	})
	if err != nil {
		return "", err
	}

	s.dispatch(ctx, email, code)
	return s.exposed(code), nil
}

// RefreshTokens exchanges a refresh token for a new pair. Both tokens are
// always rotated.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	user, err := s.userFromToken(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}
	return s.issuePair(user)
}

// Authenticate resolves an access token to its active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	return s.userFromToken(ctx, accessToken, TokenAccess)
}

func (s *Service) userFromToken(ctx context.Context, token string, kind TokenKind) (*models.User, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, apperr.ErrInvalidToken
	}

	subject, err := claims.SubjectID()
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	user, err := s.users.GetByExternalID(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("loading token subject: %w", err)
	}

	if !user.IsActive {
		return nil, apperr.ErrAccountDisabled
	}
	return user, nil
}

func (s *Service) issuePair(user *models.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user.ExternalID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
	}, nil
}

func (s *Service) dispatch(ctx context.Context, destination, code string) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Send(ctx, destination, code); err != nil {
		s.logger.WarnContext(ctx, "verification code dispatch failed",
			"destination", destination,
			"error", err,
		)
	}
}

func (s *Service) exposed(code string) string {
	if s.cfg.ExposeCode {
		return code
	}
	return ""
}

func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("timing-equalizer-password")
	})
	return s.dummyHash
}

func loadUser(ctx context.Context, users store.UserStore, externalID uuid.UUID) (*models.User, error) {
	user, err := users.GetByExternalID(ctx, externalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

func validateName(field string, name *string) error {
	if name != nil && !validation.IsValidName(*name) {
		return apperr.Validation(field, "must be at most 100 characters")
	}
	return nil
}
