package auth

import (
	"unicode/utf8"

	"github.com/hugh/go-accounts/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input ceiling in bytes. Longer inputs are
	// rejected rather than truncated.
	MaxPasswordLength = 72
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

var defaultHasher = NewBcryptHasher(bcrypt.DefaultCost)

// ValidatePassword enforces the accepted length range: at least
// MinPasswordLength characters and at most MaxPasswordLength bytes.
func ValidatePassword(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return apperr.Validation("password", "Password must be at least 8 characters")
	}
	if len(plaintext) > MaxPasswordLength {
		return apperr.Validation("password", "Password must be at most 72 bytes")
	}
	return nil
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if err := ValidatePassword(plaintext); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	if len(plaintext) > MaxPasswordLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// HashPassword hashes with the default bcrypt cost.
func HashPassword(plaintext string) (string, error) {
	return defaultHasher.Hash(plaintext)
}

// CheckPassword reports whether plaintext matches a bcrypt digest.
func CheckPassword(plaintext, digest string) bool {
	return defaultHasher.Verify(plaintext, digest)
}
