package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pquerna/otp"
)

const (
	MinLength = 4
	MaxLength = 9
)

// Generator produces numeric one-time codes from crypto/rand.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a uniformly distributed code of exactly length digits,
// leading zeros included.
func (g *Generator) Generate(length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", fmt.Errorf("otp length must be between %d and %d, got %d", MinLength, MaxLength, length)
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}

	return otp.Digits(length).Format(int32(n.Int64())), nil
}
