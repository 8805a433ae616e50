package password

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordHashingFailed = errors.New("failed to hash password")

// MaxBytes is the longest input bcrypt accepts.
const MaxBytes = 72

// Hasher hashes and verifies passwords with bcrypt. Validate is the policy
// callers run before hashing: length bounds plus an optional entropy floor.
type Hasher struct {
	cost       int
	minLength  int
	minEntropy float64
	logger     *logging.Service
}

func NewHasher(cfg config.AuthConfig, logger *logging.Service) *Hasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{
		cost:       cost,
		minLength:  cfg.PasswordMinLength,
		minEntropy: cfg.PasswordMinEntropy,
		logger:     logger,
	}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		h.logger.Error("password hashing failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrPasswordHashingFailed, err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. bcrypt compares in constant time.
func (h *Hasher) Verify(plaintext, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		h.logger.Warn("stored password hash is unreadable", zap.Error(err))
	}
	return err == nil
}

// Validate counts the minimum in characters, matching request validation,
// and the maximum in bytes, which is what bcrypt limits.
func (h *Hasher) Validate(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < h.minLength {
		return fmt.Errorf("password must be at least %d characters", h.minLength)
	}
	if len(plaintext) > MaxBytes {
		return fmt.Errorf("password must be at most %d bytes", MaxBytes)
	}
	if h.minEntropy > 0 {
		if err := passwordvalidator.Validate(plaintext, h.minEntropy); err != nil {
			return err
		}
	}
	return nil
}
