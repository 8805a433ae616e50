package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/services/jwt"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/services/mail"
	"github.com/WaqasAhmad313/next-auth-app/services/password"
	"github.com/WaqasAhmad313/next-auth-app/store"
	"github.com/WaqasAhmad313/next-auth-app/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type fixture struct {
	service *Service
	repo    *store.Store
	db      *gorm.DB
	hasher  *password.Hasher
	tokens  *jwt.Service
	mailer  *testutils.MockMailService
	clock   time.Time
}

func newFixture(t *testing.T, codes ...string) *fixture {
	t.Helper()

	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, store.Models()...)

	f := &fixture{
		repo:   store.New(db),
		db:     db,
		hasher: password.NewHasher(cfg.Auth, nil),
		tokens: jwt.NewService(cfg.JWT, nil),
		mailer: &testutils.MockMailService{},
		clock:  time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	f.service = NewService(cfg, f.repo, f.hasher, &testutils.StaticCodes{Codes: codes}, f.tokens, nil)
	f.service.SetMailService(f.mailer)
	f.service.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) expectMail(template, email, subject string, err error) {
	f.mailer.On("SendTemplate", mock.Anything, template, []string{email}, subject, mock.Anything).Return(err).Once()
}

func (f *fixture) signup(t *testing.T, email, plaintext string) *store.User {
	t.Helper()
	f.expectMail(mail.TemplateVerifyEmail, email, "Verify Your Email", nil)
	user, err := f.service.Signup(context.Background(), SignupInput{Email: email, Password: plaintext})
	require.NoError(t, err)
	return user
}

func TestService_Signup(t *testing.T) {
	f := newFixture(t, "123456")
	ctx := context.Background()
	f.expectMail(mail.TemplateVerifyEmail, "a@x.com", "Verify Your Email", nil)

	user, err := f.service.Signup(ctx, SignupInput{Name: ptr("Ada"), Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	stored, err := f.repo.FindUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, stored.EmailVerified)
	require.NotNil(t, stored.PasswordHash)
	assert.NotEqual(t, "secret1", *stored.PasswordHash)
	assert.True(t, f.hasher.Verify("secret1", *stored.PasswordHash))

	token, err := f.repo.FindVerificationToken(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", token.Token)
	assert.True(t, f.clock.Add(10*time.Minute).Equal(token.Expires))

	f.mailer.AssertExpectations(t)
	assert.Equal(t, "123456", f.mailer.SentCode(0))
	data := f.mailer.Calls[0].Arguments.Get(4).(map[string]any)
	assert.Equal(t, 10, data["ExpiresInMinutes"])
	assert.Equal(t, "Ada", data["Name"])
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	f := newFixture(t, "123456", "654321")
	f.signup(t, "a@x.com", "secret1")

	_, err := f.service.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "another1"})

	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, KindConflict, KindOf(err))
	f.mailer.AssertNumberOfCalls(t, "SendTemplate", 1)
}

func TestService_Signup_MailFailureKeepsUser(t *testing.T) {
	f := newFixture(t, "123456")
	f.expectMail(mail.TemplateVerifyEmail, "a@x.com", "Verify Your Email", errors.New("smtp unreachable"))

	user, err := f.service.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "secret1"})

	require.NoError(t, err)
	_, err = f.repo.FindUserByID(context.Background(), user.ID)
	assert.NoError(t, err)
}

func TestService_Signup_WithoutMailService(t *testing.T) {
	f := newFixture(t, "123456")
	f.service.SetMailService(nil)

	_, err := f.service.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "secret1"})

	assert.NoError(t, err)
}

func TestService_Signup_CodeGenerationFailureRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, KindDependency, KindOf(err))

	_, err = f.repo.FindUserByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestService_Signup_PasswordPolicy(t *testing.T) {
	f := newFixture(t, "123456")
	cfg := testutils.GetTestConfig().Auth
	cfg.PasswordMinEntropy = 60
	f.service.SetPasswordPolicy(password.NewHasher(cfg, nil))

	_, err := f.service.Signup(context.Background(), SignupInput{Email: "a@x.com", Password: "aaaaaaa"})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "password")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestService_VerifyOTP_Scenario(t *testing.T) {
	f := newFixture(t, "482913")
	ctx := context.Background()
	f.signup(t, "a@x.com", "secret1")

	err := f.service.VerifyOTP(ctx, "a@x.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidOtp)

	f.clock = f.clock.Add(9 * time.Minute)
	require.NoError(t, f.service.VerifyOTP(ctx, "a@x.com", "482913"))

	user, err := f.repo.FindUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, user.EmailVerified)
	assert.True(t, f.clock.Equal(*user.EmailVerified))

	err = f.service.VerifyOTP(ctx, "a@x.com", "482913")
	assert.ErrorIs(t, err, ErrNoOtpFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestService_VerifyOTP_Expiry(t *testing.T) {
	t.Run("expired code fails even when it matches", func(t *testing.T) {
		f := newFixture(t, "482913")
		f.signup(t, "a@x.com", "secret1")

		f.clock = f.clock.Add(10*time.Minute + time.Second)
		err := f.service.VerifyOTP(context.Background(), "a@x.com", "482913")

		assert.ErrorIs(t, err, ErrOtpExpired)
		assert.Equal(t, KindInvalidCredential, KindOf(err))
	})

	t.Run("code is valid at the expiry instant", func(t *testing.T) {
		f := newFixture(t, "482913")
		f.signup(t, "a@x.com", "secret1")

		f.clock = f.clock.Add(10 * time.Minute)
		assert.NoError(t, f.service.VerifyOTP(context.Background(), "a@x.com", "482913"))
	})

	t.Run("mismatch is reported before expiry", func(t *testing.T) {
		f := newFixture(t, "482913")
		f.signup(t, "a@x.com", "secret1")

		f.clock = f.clock.Add(time.Hour)
		assert.ErrorIs(t, f.service.VerifyOTP(context.Background(), "a@x.com", "111111"), ErrInvalidOtp)
	})
}

func TestService_VerifyOTP_NoCode(t *testing.T) {
	f := newFixture(t)

	err := f.service.VerifyOTP(context.Background(), "nobody@x.com", "123456")

	assert.ErrorIs(t, err, ErrNoOtpFound)
}

func TestService_ReissueInvalidatesPreviousCode(t *testing.T) {
	f := newFixture(t, "111111", "222222")
	ctx := context.Background()
	f.signup(t, "a@x.com", "secret1")
	f.expectMail(mail.TemplatePasswordReset, "a@x.com", "Password Reset Code", nil)
	require.NoError(t, f.service.ForgotPassword(ctx, "a@x.com"))

	assert.ErrorIs(t, f.service.VerifyOTP(ctx, "a@x.com", "111111"), ErrInvalidOtp)
	assert.NoError(t, f.service.VerifyOTP(ctx, "a@x.com", "222222"))
}

func TestService_Login(t *testing.T) {
	f := newFixture(t, "123456")
	ctx := context.Background()
	user := f.signup(t, "a@x.com", "secret1")
	require.NoError(t, f.repo.CreateUser(ctx, &store.User{Email: "oauth@x.com"}))

	t.Run("success", func(t *testing.T) {
		result, err := f.service.Login(ctx, "a@x.com", "secret1")
		require.NoError(t, err)

		assert.Equal(t, user.ID, result.User.ID)
		claims, err := f.tokens.Verify(result.Tokens.AccessToken, jwt.Access)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "a@x.com", claims.Email)
		_, err = f.tokens.Verify(result.Tokens.RefreshToken, jwt.Refresh)
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.Login(ctx, "a@x.com", "secret2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.service.Login(ctx, "nobody@x.com", "secret1")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("account without password", func(t *testing.T) {
		result, err := f.service.Login(ctx, "oauth@x.com", "")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrNoPasswordSet)
	})
}

func TestService_ForgotPassword_UnknownEmail(t *testing.T) {
	f := newFixture(t, "123456")

	err := f.service.ForgotPassword(context.Background(), "nobody@x.com")

	assert.ErrorIs(t, err, ErrUserNotFound)
	f.mailer.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ForgotPassword_MailFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, "123456", "654321")
	f.signup(t, "a@x.com", "secret1")
	f.expectMail(mail.TemplatePasswordReset, "a@x.com", "Password Reset Code", errors.New("timeout"))

	assert.NoError(t, f.service.ForgotPassword(context.Background(), "a@x.com"))
}

func TestService_ResetPassword_Scenario(t *testing.T) {
	f := newFixture(t, "123456", "777777")
	ctx := context.Background()
	f.signup(t, "a@x.com", "secret1")
	f.expectMail(mail.TemplatePasswordReset, "a@x.com", "Password Reset Code", nil)
	require.NoError(t, f.service.ForgotPassword(ctx, "a@x.com"))
	assert.Equal(t, "777777", f.mailer.SentCode(1))

	require.NoError(t, f.service.ResetPassword(ctx, "a@x.com", "777777", "secret2"))

	_, err := f.service.Login(ctx, "a@x.com", "secret2")
	assert.NoError(t, err)
	_, err = f.service.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.ErrorIs(t, f.service.ResetPassword(ctx, "a@x.com", "777777", "secret3"), ErrNoOtpFound)
}

func TestService_ResetPassword_Failures(t *testing.T) {
	f := newFixture(t, "123456")
	ctx := context.Background()
	f.signup(t, "a@x.com", "secret1")

	assert.ErrorIs(t, f.service.ResetPassword(ctx, "a@x.com", "999999", "secret2"), ErrInvalidOtp)

	f.clock = f.clock.Add(11 * time.Minute)
	assert.ErrorIs(t, f.service.ResetPassword(ctx, "a@x.com", "123456", "secret2"), ErrOtpExpired)

	_, err := f.service.Login(ctx, "a@x.com", "secret1")
	assert.NoError(t, err, "password must be unchanged after failed resets")
}

func TestService_CleanupExpiredOTPs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const expired, live = 3, 2
	for i := 0; i < expired; i++ {
		require.NoError(t, f.repo.UpsertVerificationToken(ctx, &store.VerificationToken{
			Identifier: fmt.Sprintf("old%d@x.com", i), Token: "000000", Expires: f.clock.Add(-time.Duration(i+1) * time.Minute),
		}))
	}
	for i := 0; i < live; i++ {
		require.NoError(t, f.repo.UpsertVerificationToken(ctx, &store.VerificationToken{
			Identifier: fmt.Sprintf("new%d@x.com", i), Token: "000000", Expires: f.clock.Add(time.Duration(i+1) * time.Minute),
		}))
	}

	removed, err := f.service.CleanupExpiredOTPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(expired), removed)

	for i := 0; i < live; i++ {
		_, err := f.repo.FindVerificationToken(ctx, fmt.Sprintf("new%d@x.com", i))
		assert.NoError(t, err)
	}

	removed, err = f.service.CleanupExpiredOTPs(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestService_GetUserByID(t *testing.T) {
	f := newFixture(t, "123456")
	user := f.signup(t, "a@x.com", "secret1")

	found, err := f.service.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", found.Email)

	_, err = f.service.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_UpdateUserByID(t *testing.T) {
	f := newFixture(t, "123456", "654321")
	ctx := context.Background()
	user := f.signup(t, "a@x.com", "secret1")
	f.signup(t, "b@x.com", "secret1")

	t.Run("profile fields and password", func(t *testing.T) {
		updated, err := f.service.UpdateUserByID(ctx, user.ID, UpdateUserInput{
			Name:     ptr("Ada L."),
			Image:    ptr("https://img.example/ada.png"),
			Password: ptr("newpass"),
		})
		require.NoError(t, err)

		assert.Equal(t, user.ID, updated.ID)
		assert.Equal(t, "Ada L.", *updated.Name)
		assert.NotEqual(t, "newpass", *updated.PasswordHash)
		assert.True(t, f.hasher.Verify("newpass", *updated.PasswordHash))
	})

	t.Run("email collision", func(t *testing.T) {
		_, err := f.service.UpdateUserByID(ctx, user.ID, UpdateUserInput{Email: ptr("b@x.com")})
		assert.ErrorIs(t, err, ErrEmailInUse)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.service.UpdateUserByID(ctx, "missing", UpdateUserInput{Name: ptr("x")})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestService_Refresh(t *testing.T) {
	f := newFixture(t, "123456")
	ctx := context.Background()
	user := f.signup(t, "a@x.com", "secret1")
	login, err := f.service.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	t.Run("valid refresh token", func(t *testing.T) {
		result, err := f.service.Refresh(ctx, login.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)
		assert.NotEmpty(t, result.Tokens.AccessToken)
	})

	t.Run("access token is rejected", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, login.Tokens.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		assert.Equal(t, KindAuthorization, KindOf(err))
	})

	t.Run("user no longer exists", func(t *testing.T) {
		require.NoError(t, f.db.Delete(&store.User{}, "id = ?", user.ID).Error)
		_, err := f.service.Refresh(ctx, login.Tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestService_LoginWithOAuth(t *testing.T) {
	ctx := context.Background()
	google := func(sub, email string, verified bool) FederatedIdentity {
		return FederatedIdentity{Provider: "google", ProviderAccountID: sub, Email: email, EmailVerified: verified, Name: "Grace", Image: "https://img.example/g.png"}
	}

	t.Run("creates a password-less user and reuses the link", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.service.LoginWithOAuth(ctx, google("sub-1", "g@x.com", true))
		require.NoError(t, err)
		assert.False(t, first.User.HasPassword())
		assert.NotNil(t, first.User.EmailVerified)
		assert.Equal(t, "Grace", first.User.DisplayName())

		second, err := f.service.LoginWithOAuth(ctx, google("sub-1", "g@x.com", true))
		require.NoError(t, err)
		assert.Equal(t, first.User.ID, second.User.ID)

		_, err = f.service.Login(ctx, "g@x.com", "anything")
		assert.ErrorIs(t, err, ErrNoPasswordSet)
	})

	t.Run("links an existing user when the provider verified the email", func(t *testing.T) {
		f := newFixture(t, "123456")
		user := f.signup(t, "a@x.com", "secret1")

		result, err := f.service.LoginWithOAuth(ctx, google("sub-2", "a@x.com", true))
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)
		assert.NotNil(t, result.User.EmailVerified)

		_, err = f.service.Login(ctx, "a@x.com", "secret1")
		assert.NoError(t, err)
	})

	t.Run("refuses to link an unverified email", func(t *testing.T) {
		f := newFixture(t, "123456")
		f.signup(t, "a@x.com", "secret1")

		_, err := f.service.LoginWithOAuth(ctx, google("sub-3", "a@x.com", false))
		assert.ErrorIs(t, err, ErrFederatedEmailConflict)
	})

	t.Run("incomplete identity", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.LoginWithOAuth(ctx, google("", "g@x.com", true))
		assert.ErrorIs(t, err, ErrIncompleteIdentity)
	})
}

func TestService_StoreFailureSurfaces(t *testing.T) {
	f := newFixture(t, "123456")
	testutils.CloseTestDB(t, f.db)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, SignupInput{Email: "a@x.com", Password: "secret1"})
	assert.Equal(t, KindDependency, KindOf(err))

	_, err = f.service.Login(ctx, "a@x.com", "secret1")
	assert.Equal(t, KindDependency, KindOf(err))

	_, err = f.service.CleanupExpiredOTPs(ctx)
	assert.Equal(t, KindDependency, KindOf(err))
}

func TestService_NeverLogsSecrets(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	f := newFixture(t, "314159", "271828")
	f.service.logger = logging.NewFromLogger(zap.New(core))
	ctx := context.Background()

	f.signup(t, "a@x.com", "hunter22")
	_ = f.service.VerifyOTP(ctx, "a@x.com", "000000")
	require.NoError(t, f.service.VerifyOTP(ctx, "a@x.com", "314159"))
	_, _ = f.service.Login(ctx, "a@x.com", "wrong-pass")
	f.expectMail(mail.TemplatePasswordReset, "a@x.com", "Password Reset Code", nil)
	require.NoError(t, f.service.ForgotPassword(ctx, "a@x.com"))
	require.NoError(t, f.service.ResetPassword(ctx, "a@x.com", "271828", "hunter33"))

	require.NotEmpty(t, recorded.All())
	for _, entry := range recorded.All() {
		line := entry.Message + fmt.Sprint(entry.ContextMap())
		for _, secret := range []string{"hunter22", "hunter33", "wrong-pass", "314159", "271828", "000000"} {
			assert.NotContains(t, line, secret)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{NewValidationError("email", "invalid"), KindValidation},
		{ErrUserNotFound, KindNotFound},
		{ErrNoOtpFound, KindNotFound},
		{ErrUserExists, KindConflict},
		{ErrEmailInUse, KindConflict},
		{ErrFederatedEmailConflict, KindConflict},
		{ErrInvalidOtp, KindInvalidCredential},
		{ErrOtpExpired, KindInvalidCredential},
		{ErrInvalidCredentials, KindInvalidCredential},
		{ErrNoPasswordSet, KindInvalidCredential},
		{ErrInvalidRefreshToken, KindAuthorization},
		{fmt.Errorf("wrapped: %w", ErrUserExists), KindConflict},
		{errors.New("connection reset"), KindDependency},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"password": "too short", "email": "invalid"}}

	assert.Equal(t, "validation failed: email: invalid; password: too short", err.Error())
}

func TestService_PasswordBeyondBcryptLimit(t *testing.T) {
	f := newFixture(t, "123456", "222222")
	f.service.SetPasswordPolicy(f.hasher)
	ctx := context.Background()
	long := strings.Repeat("a", 80)

	_, err := f.service.Signup(ctx, SignupInput{Email: "a@x.com", Password: long})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, validation.Fields["password"], "at most 72 bytes")

	user := f.signup(t, "a@x.com", "secret1")

	_, err = f.service.UpdateUserByID(ctx, user.ID, UpdateUserInput{Password: ptr(strings.Repeat("ä", 40))})
	assert.Equal(t, KindValidation, KindOf(err))

	f.expectMail(mail.TemplatePasswordReset, "a@x.com", "Password Reset Code", nil)
	require.NoError(t, f.service.ForgotPassword(ctx, "a@x.com"))
	err = f.service.ResetPassword(ctx, "a@x.com", "222222", long)
	assert.Equal(t, KindValidation, KindOf(err))

	// the rejected reset leaves the code redeemable
	require.NoError(t, f.service.ResetPassword(ctx, "a@x.com", "222222", "secret2"))
}

// staleReads hides rows committed by a concurrent sign-in from the first
// misses email lookups, so the insert that follows collides.
type staleReads struct {
	store.Repository
	misses *int
}

func (r *staleReads) Transaction(ctx context.Context, fn func(tx store.Repository) error) error {
	return r.Repository.Transaction(ctx, func(tx store.Repository) error {
		return fn(&staleReads{Repository: tx, misses: r.misses})
	})
}

func (r *staleReads) FindUserByAccount(ctx context.Context, provider, providerAccountID string) (*store.User, error) {
	if *r.misses > 0 {
		return nil, store.ErrAccountNotFound
	}
	return r.Repository.FindUserByAccount(ctx, provider, providerAccountID)
}

func (r *staleReads) FindUserByEmail(ctx context.Context, email string) (*store.User, error) {
	if *r.misses > 0 {
		*r.misses--
		return nil, store.ErrUserNotFound
	}
	return r.Repository.FindUserByEmail(ctx, email)
}

func TestService_LoginWithOAuth_ConcurrentFirstSignIn(t *testing.T) {
	ctx := context.Background()
	identity := FederatedIdentity{Provider: "google", ProviderAccountID: "sub-1", Email: "g@x.com", EmailVerified: true}

	racing := func(f *fixture, misses int) *Service {
		return NewService(testutils.GetTestConfig(), &staleReads{Repository: f.repo, misses: &misses}, f.hasher, &testutils.StaticCodes{}, f.tokens, nil)
	}

	t.Run("loser retries and lands on the winner's user", func(t *testing.T) {
		f := newFixture(t)
		winner, err := f.service.LoginWithOAuth(ctx, identity)
		require.NoError(t, err)

		loser, err := racing(f, 1).LoginWithOAuth(ctx, identity)
		require.NoError(t, err)
		assert.Equal(t, winner.User.ID, loser.User.ID)
	})

	t.Run("repeated collisions are a conflict, not a dependency failure", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.LoginWithOAuth(ctx, identity)
		require.NoError(t, err)

		_, err = racing(f, federatedAttempts).LoginWithOAuth(ctx, identity)
		assert.ErrorIs(t, err, ErrFederatedEmailConflict)
		assert.Equal(t, KindConflict, KindOf(err))
	})
}
