package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrExpiredToken     = errors.New("JWT token has expired")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
	ErrWrongTokenClass  = errors.New("JWT token has the wrong class")
)

// TokenClass selects the signing secret and lifetime of a token.
type TokenClass string

const (
	Access  TokenClass = "access"
	Refresh TokenClass = "refresh"
)

type Claims struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	TokenType TokenClass `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessTokenExpires"`
	RefreshExpiresAt time.Time `json:"refreshTokenExpires"`
}

type Service struct {
	config config.JWTConfig
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg config.JWTConfig, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) secret(class TokenClass) ([]byte, error) {
	switch class {
	case Access:
		return []byte(s.config.AccessSecret), nil
	case Refresh:
		return []byte(s.config.RefreshSecret), nil
	default:
		return nil, fmt.Errorf("unknown token class %q", class)
	}
}

func (s *Service) expiry(class TokenClass) time.Duration {
	if class == Refresh {
		return s.config.RefreshExpiry
	}
	return s.config.AccessExpiry
}

// Issue signs a fresh access and refresh token for the user.
func (s *Service) Issue(userID, email string) (*TokenPair, error) {
	access, accessExp, err := s.sign(Access, userID, email)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.sign(Refresh, userID, email)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) sign(class TokenClass, userID, email string) (string, time.Time, error) {
	key, err := s.secret(class)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.expiry(class))
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: class,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		s.logger.Error("failed to sign JWT token", zap.String("class", string(class)), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", class, err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, expiry and class. It never panics on hostile input
// and reports failures through the Err* sentinels.
func (s *Service) Verify(tokenString string, class TokenClass) (*Claims, error) {
	key, err := s.secret(class)
	if err != nil {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.Debug("JWT token rejected", zap.String("class", string(class)), zap.Error(err))

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != class {
		return nil, ErrWrongTokenClass
	}
	return claims, nil
}
