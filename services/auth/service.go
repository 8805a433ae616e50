package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/jwt"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/services/mail"
	"github.com/WaqasAhmad313/next-auth-app/store"
	"go.uber.org/zap"
)

const (
	subjectVerifyEmail   = "Verify Your Email"
	subjectPasswordReset = "Password Reset Code"
)

type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

type PasswordPolicy interface {
	Validate(plaintext string) error
}

type CodeGenerator interface {
	Generate(length int) (string, error)
}

type TokenIssuer interface {
	Issue(userID, email string) (*jwt.TokenPair, error)
	Verify(token string, class jwt.TokenClass) (*jwt.Claims, error)
}

type MailService interface {
	SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error
}

type Service struct {
	config      config.AuthConfig
	appName     string
	store       store.Repository
	hasher      Hasher
	policy      PasswordPolicy
	codes       CodeGenerator
	tokens      TokenIssuer
	mailService MailService
	logger      *logging.Service
	now         func() time.Time
}

func NewService(cfg *config.Config, repo store.Repository, hasher Hasher, codes CodeGenerator, tokens TokenIssuer, logger *logging.Service) *Service {
	return &Service{
		config:  cfg.Auth,
		appName: cfg.App.Name,
		store:   repo,
		hasher:  hasher,
		codes:   codes,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) SetMailService(mailService MailService) {
	s.mailService = mailService
}

func (s *Service) SetPasswordPolicy(policy PasswordPolicy) {
	s.policy = policy
}

type SignupInput struct {
	Name     *string
	Email    string
	Password string
}

// LoginResult is the identity handed to the session and token layers.
type LoginResult struct {
	User   *store.User
	Tokens *jwt.TokenPair
}

type UpdateUserInput struct {
	Name     *string
	Email    *string
	Image    *string
	Password *string
}

// Signup creates an unverified user and mails a verification code. The user
// and code are written together; a failed delivery is logged and does not
// undo the signup.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*store.User, error) {
	if err := s.checkPolicy(in.Password); err != nil {
		return nil, err
	}

	_, err := s.store.FindUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: &hash,
	}

	var code string
	err = s.store.Transaction(ctx, func(tx store.Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrUserExists
			}
			return err
		}
		code, err = s.issueCode(ctx, tx, in.Email)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	s.dispatchCode(ctx, mail.TemplateVerifyEmail, subjectVerifyEmail, user, code)

	return user, nil
}

// VerifyOTP marks the email verified and consumes the code.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) error {
	err := s.store.Transaction(ctx, func(tx store.Repository) error {
		if err := s.consumeCode(ctx, tx, email, code); err != nil {
			return err
		}
		if err := tx.MarkEmailVerified(ctx, email, s.now()); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.logFailure("email verification failed", email, err)
		return err
	}

	s.logger.Info("email verified", zap.String("email", email))
	return nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		s.logFailure("login failed", email, err)
		return nil, err
	}

	if !user.HasPassword() {
		s.logger.Warn("password login attempted on federated account", zap.String("email", email))
		return nil, ErrNoPasswordSet
	}

	if !s.hasher.Verify(password, *user.PasswordHash) {
		s.logger.Warn("login failed: invalid credentials", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	result, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return result, nil
}

// ForgotPassword mails a reset code. Unknown emails are reported as
// ErrUserNotFound, which discloses whether an account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		s.logFailure("password reset requested for unknown account", email, err)
		return err
	}

	code, err := s.issueCode(ctx, s.store, email)
	if err != nil {
		return err
	}

	s.logger.Info("password reset code issued", zap.String("email", email))
	s.dispatchCode(ctx, mail.TemplatePasswordReset, subjectPasswordReset, user, code)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.checkPolicy(newPassword); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx store.Repository) error {
		if err := s.consumeCode(ctx, tx, email, code); err != nil {
			return err
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}

		if _, err := tx.UpdateUserByEmail(ctx, email, store.UserPatch{PasswordHash: &hash}); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.logFailure("password reset failed", email, err)
		return err
	}

	s.logger.Info("password reset completed", zap.String("email", email))
	return nil
}

// CleanupExpiredOTPs removes every code past its expiry and returns how many
// were deleted.
func (s *Service) CleanupExpiredOTPs(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpiredVerificationTokens(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to cleanup expired verification tokens", zap.Error(err))
		return 0, err
	}

	s.logger.Info("expired verification tokens cleaned up", zap.Int64("tokens_removed", removed))
	return removed, nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	user, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateUserByID applies a partial profile update. The id is never changed
// and a new password is stored hashed.
func (s *Service) UpdateUserByID(ctx context.Context, id string, in UpdateUserInput) (*store.User, error) {
	patch := store.UserPatch{
		Name:  in.Name,
		Email: in.Email,
		Image: in.Image,
	}

	if in.Password != nil {
		if err := s.checkPolicy(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	user, err := s.store.UpdateUserByID(ctx, id, patch)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return nil, ErrUserNotFound
	case errors.Is(err, store.ErrDuplicate):
		return nil, ErrEmailInUse
	case err != nil:
		return nil, err
	}

	s.logger.Info("user profile updated", zap.String("user_id", id), zap.Bool("password_changed", in.Password != nil))
	return user, nil
}

// Refresh trades a valid refresh token for a new pair, provided the user
// still exists.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.tokens.Verify(refreshToken, jwt.Refresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		s.logger.Warn("refresh token for deleted user", zap.String("user_id", claims.UserID))
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *Service) findByEmail(ctx context.Context, email string) (*store.User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *Service) issueTokens(user *store.User) (*LoginResult, error) {
	tokens, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// issueCode replaces any live code for the identifier.
func (s *Service) issueCode(ctx context.Context, repo store.Repository, identifier string) (string, error) {
	code, err := s.codes.Generate(s.config.OTPLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	token := &store.VerificationToken{
		Identifier: identifier,
		Token:      code,
		Expires:    s.now().Add(s.config.OTPExpiry),
	}
	if err := repo.UpsertVerificationToken(ctx, token); err != nil {
		return "", err
	}
	return code, nil
}

// consumeCode checks presence, value and expiry in that order, then deletes
// the record only if it still holds the submitted code.
func (s *Service) consumeCode(ctx context.Context, repo store.Repository, identifier, code string) error {
	token, err := repo.FindVerificationToken(ctx, identifier)
	if errors.Is(err, store.ErrTokenNotFound) {
		return ErrNoOtpFound
	}
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(token.Token), []byte(code)) != 1 {
		return ErrInvalidOtp
	}

	if token.ExpiredAt(s.now()) {
		return ErrOtpExpired
	}

	if err := repo.ConsumeVerificationToken(ctx, identifier, code); err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return ErrNoOtpFound
		}
		return err
	}
	return nil
}

func (s *Service) dispatchCode(ctx context.Context, templateName, subject string, user *store.User, code string) {
	if s.mailService == nil {
		s.logger.Warn("mail service not configured, code not delivered", zap.String("email", user.Email), zap.String("template", templateName))
		return
	}

	data := map[string]any{
		"Code":             code,
		"Name":             user.DisplayName(),
		"AppName":          s.appName,
		"ExpiresInMinutes": int(s.config.OTPExpiry.Minutes()),
	}
	// delivery outlives a client that hangs up mid-request
	ctx = context.WithoutCancel(ctx)
	if err := s.mailService.SendTemplate(ctx, templateName, []string{user.Email}, subject, data); err != nil {
		s.logger.Warn("code email dispatch failed", zap.String("email", user.Email), zap.String("template", templateName), zap.Error(err))
	}
}

func (s *Service) checkPolicy(password string) error {
	if s.policy == nil {
		return nil
	}
	if err := s.policy.Validate(password); err != nil {
		return NewValidationError("password", err.Error())
	}
	return nil
}

func (s *Service) logFailure(msg, email string, err error) {
	if KindOf(err) == KindDependency {
		s.logger.Error(msg, zap.String("email", email), zap.Error(err))
		return
	}
	s.logger.Warn(msg, zap.String("email", email), zap.String("reason", err.Error()))
}
