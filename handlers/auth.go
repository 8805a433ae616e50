package handlers

import (
	"context"
	"net/http"

	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/session"
	"github.com/WaqasAhmad313/next-auth-app/store"
	"github.com/labstack/echo/v4"
)

type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (*store.User, error)
	VerifyOTP(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.LoginResult, error)
	LoginWithOAuth(ctx context.Context, identity auth.FederatedIdentity) (*auth.LoginResult, error)
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	UpdateUserByID(ctx context.Context, id string, in auth.UpdateUserInput) (*store.User, error)
}

type SignupRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,otp"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,numeric,otp"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req, "Invalid signup data"); err != nil {
		return err
	}

	user, err := h.auth.Signup(c.Request().Context(), auth.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return fromAuth(err, "Failed to sign up user")
	}

	return respond(c, http.StatusCreated, "User registered. OTP sent to email.", SignupData{UserID: user.ID})
}

func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := bind(c, &req, "Invalid OTP data"); err != nil {
		return err
	}

	if err := h.auth.VerifyOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return fromAuth(err, "Failed to verify OTP")
	}

	return ok(c, "Email verified successfully", nil)
}

// Login checks credentials, opens a session and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req, "Invalid login data"); err != nil {
		return err
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fromCredentialCheck(err, "Failed to log in user")
	}

	if err := session.Login(c, identityOf(result.User)); err != nil {
		return &Error{Status: http.StatusInternalServerError, Message: "Failed to log in user", Err: err}
	}

	return ok(c, "Login successful", loginData(result))
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bind(c, &req, "Invalid forgot password data"); err != nil {
		return err
	}

	if err := h.auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return fromAuth(err, "Failed to send password reset email")
	}

	return ok(c, "Password reset code sent", nil)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req, "Invalid reset password data"); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		return fromAuth(err, "Failed to reset password")
	}

	return ok(c, "Password reset successful", nil)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bind(c, &req, "Invalid refresh data"); err != nil {
		return err
	}

	result, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return fromCredentialCheck(err, "Failed to refresh tokens")
	}

	return ok(c, "Tokens refreshed", loginData(result))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := session.Logout(c); err != nil {
		return &Error{Status: http.StatusInternalServerError, Message: "Failed to log out", Err: err}
	}
	return ok(c, "Logged out successfully", nil)
}

func (h *AuthHandler) Session(c echo.Context) error {
	identity, found := session.CurrentUser(c)
	if !found {
		return &Error{Status: http.StatusUnauthorized, Message: "Unauthorized"}
	}

	return ok(c, "Session active", SessionData{
		User:   UserSummary{ID: identity.ID, Email: identity.Email, Name: identity.Name},
		Device: session.Device(c),
	})
}

func identityOf(user *store.User) session.Identity {
	return session.Identity{ID: user.ID, Email: user.Email, Name: user.DisplayName()}
}

func loginData(result *auth.LoginResult) LoginData {
	return LoginData{
		User: UserSummary{
			ID:    result.User.ID,
			Email: result.User.Email,
			Name:  result.User.DisplayName(),
		},
		AccessToken:         result.Tokens.AccessToken,
		RefreshToken:        result.Tokens.RefreshToken,
		AccessTokenExpires:  result.Tokens.AccessExpiresAt.Unix(),
		RefreshTokenExpires: result.Tokens.RefreshExpiresAt.Unix(),
	}
}
