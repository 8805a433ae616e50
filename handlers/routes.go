package handlers

import (
	"net/http"
	"strings"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/middleware/authn"
	"github.com/WaqasAhmad313/next-auth-app/middleware/csrf"
	"github.com/WaqasAhmad313/next-auth-app/middleware/ratelimit"
	"github.com/WaqasAhmad313/next-auth-app/openapi"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/session"
	"github.com/WaqasAhmad313/next-auth-app/store"
	"github.com/labstack/echo/v4"
)

type Dependencies struct {
	Config         *config.Config
	Auth           AuthService
	Tokens         authn.TokenVerifier
	Sessions       *session.Manager
	RateLimitStore ratelimit.Store
	OAuth          OAuthProvider
	Logger         *logging.Service
}

// Register installs the gateway on e: validation, the error envelope, session
// and CSRF middleware, and every route of the HTTP surface.
func Register(e *echo.Echo, deps Dependencies) *openapi.Document {
	cfg := deps.Config

	e.Validator = NewValidator(cfg.Auth.OTPLength)
	e.HTTPErrorHandler = ErrorHandler(deps.Logger)

	e.Use(session.Middleware(deps.Sessions))
	e.Use(csrf.Middleware(cfg.CSRF))

	authHandler := NewAuthHandler(deps.Auth)
	userHandler := NewUserHandler(deps.Auth)
	oauthHandler := NewOAuthHandler(deps.Auth, deps.OAuth, strings.TrimRight(cfg.App.URL, "/")+"/dashboard", deps.Logger.Named("oauth"))

	limiter := ratelimit.FromConfig(cfg.RateLimit, deps.RateLimitStore, deps.Logger)

	authGroup := e.Group("/auth", limiter)
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/verify-otp", authHandler.VerifyOTP)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/session", authHandler.Session)
	authGroup.GET("/oauth/google", oauthHandler.Start)
	authGroup.GET("/oauth/google/callback", oauthHandler.Callback)
	if cfg.CSRF.Enabled {
		authGroup.GET("/csrf", func(c echo.Context) error {
			return ok(c, "CSRF token issued", CSRFData{CSRFToken: csrf.GetToken(c)})
		})
	}

	userGroup := e.Group("/user", authn.Require(deps.Tokens))
	userGroup.GET("/me", userHandler.Me)
	userGroup.PATCH("/update", userHandler.Update)

	doc := Document(cfg)
	e.GET("/openapi.json", doc.JSONHandler())
	e.GET("/openapi.yaml", doc.YAMLHandler())

	return doc
}

// Document describes the routes installed by Register.
func Document(cfg *config.Config) *openapi.Document {
	doc := openapi.New(cfg.App.Name+" API", "1.0.0").
		Description("Account signup, email verification, sign-in and profile management.").
		Server(cfg.App.URL, cfg.App.Environment).
		Tag("auth", "Signup, verification, sign-in and password recovery").
		Tag("user", "Profile of the signed-in user").
		BearerAuth("bearerAuth", "Access token returned by login or refresh").
		CookieAuth("sessionCookie", cfg.Session.Name, "Session established by login")

	doc.Route(http.MethodPost, "/auth/signup").
		Summary("Register a user and mail an email verification code").
		Tags("auth").
		Body(SignupRequest{}, "New account").
		Success(http.StatusCreated, SignupData{}, "User registered").
		Failure(http.StatusBadRequest, "Invalid signup data").
		Failure(http.StatusConflict, "User already exists").
		Failure(http.StatusTooManyRequests, "Too many requests").
		Build()

	doc.Route(http.MethodPost, "/auth/verify-otp").
		Summary("Verify an email address with its one-time code").
		Tags("auth").
		Body(VerifyOTPRequest{}, "Email and code").
		Success(http.StatusOK, nil, "Email verified").
		Failure(http.StatusBadRequest, "Invalid or expired code").
		Failure(http.StatusNotFound, "No code was issued for this email").
		Build()

	doc.Route(http.MethodPost, "/auth/login").
		Summary("Sign in with email and password").
		Description("Opens a session and returns an access and refresh token pair.").
		Tags("auth").
		Body(LoginRequest{}, "Credentials").
		Success(http.StatusOK, LoginData{}, "Signed in").
		Failure(http.StatusBadRequest, "Invalid login data").
		Failure(http.StatusUnauthorized, "Invalid credentials, or the account has no password").
		Failure(http.StatusNotFound, "User not found").
		Build()

	doc.Route(http.MethodPost, "/auth/forgot-password").
		Summary("Mail a password reset code").
		Tags("auth").
		Body(ForgotPasswordRequest{}, "Account email").
		Success(http.StatusOK, nil, "Reset code sent").
		Failure(http.StatusNotFound, "User not found").
		Build()

	doc.Route(http.MethodPost, "/auth/reset-password").
		Summary("Set a new password with a reset code").
		Tags("auth").
		Body(ResetPasswordRequest{}, "Email, code and new password").
		Success(http.StatusOK, nil, "Password reset").
		Failure(http.StatusBadRequest, "Invalid or expired code").
		Failure(http.StatusNotFound, "No code was issued for this email").
		Build()

	doc.Route(http.MethodPost, "/auth/refresh").
		Summary("Exchange a refresh token for a new token pair").
		Tags("auth").
		Body(RefreshRequest{}, "Refresh token").
		Success(http.StatusOK, LoginData{}, "Tokens refreshed").
		Failure(http.StatusUnauthorized, "Invalid or expired refresh token").
		Build()

	doc.Route(http.MethodPost, "/auth/logout").
		Summary("End the session").
		Tags("auth").
		Success(http.StatusOK, nil, "Logged out").
		Build()

	doc.Route(http.MethodGet, "/auth/session").
		Summary("Identity asserted by the current session").
		Tags("auth").
		Security("sessionCookie").
		Success(http.StatusOK, SessionData{}, "Session active").
		Failure(http.StatusUnauthorized, "No session").
		Build()

	doc.Route(http.MethodGet, "/auth/oauth/google").
		Summary("Start Google sign-in").
		Tags("auth").
		Redirect("Redirect to Google").
		Failure(http.StatusNotFound, "Google sign-in is not configured").
		Build()

	doc.Route(http.MethodGet, "/auth/oauth/google/callback").
		Summary("Complete Google sign-in").
		Tags("auth").
		QueryParam("state", "State issued by the start route", true).
		QueryParam("code", "Authorization code", false).
		QueryParam("error", "Set by Google when sign-in was refused", false).
		Redirect("Signed in, redirect to the application").
		Failure(http.StatusBadRequest, "Invalid state or missing code").
		Failure(http.StatusUnauthorized, "Sign-in was cancelled or failed").
		Failure(http.StatusConflict, "Email belongs to an account the provider did not verify").
		Build()

	if cfg.CSRF.Enabled {
		doc.Route(http.MethodGet, "/auth/csrf").
			Summary("Issue a CSRF token for cookie-authenticated requests").
			Tags("auth").
			Success(http.StatusOK, CSRFData{}, "Token issued").
			Build()
	}

	doc.Route(http.MethodGet, "/user/me").
		Summary("Profile of the signed-in user").
		Tags("user").
		Security("bearerAuth", "sessionCookie").
		Success(http.StatusOK, store.User{}, "User fetched").
		Failure(http.StatusUnauthorized, "Not signed in").
		Failure(http.StatusNotFound, "User not found").
		Build()

	doc.Route(http.MethodPatch, "/user/update").
		Summary("Update the signed-in user's profile").
		Tags("user").
		Security("bearerAuth", "sessionCookie").
		Body(UpdateUserRequest{}, "Fields to change").
		Success(http.StatusOK, store.User{}, "User updated").
		Failure(http.StatusBadRequest, "Invalid update data").
		Failure(http.StatusUnauthorized, "Not signed in").
		Failure(http.StatusConflict, "Email is already in use").
		Build()

	return doc
}
