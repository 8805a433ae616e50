package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/WaqasAhmad313/next-auth-app/services/oauth"
	"github.com/WaqasAhmad313/next-auth-app/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type OAuthProvider interface {
	Name() string
	AuthCodeURL(state, verifier string) string
	Identity(ctx context.Context, code, verifier string) (*auth.FederatedIdentity, error)
}

type OAuthHandler struct {
	auth        AuthService
	provider    OAuthProvider
	redirectURL string
	logger      *logging.Service
}

// NewOAuthHandler returns a handler that answers 404 for every route when
// provider is nil.
func NewOAuthHandler(authService AuthService, provider OAuthProvider, redirectURL string, logger *logging.Service) *OAuthHandler {
	return &OAuthHandler{
		auth:        authService,
		provider:    provider,
		redirectURL: redirectURL,
		logger:      logger,
	}
}

func (h *OAuthHandler) Start(c echo.Context) error {
	if h.provider == nil {
		return &Error{Status: http.StatusNotFound, Message: "Google sign-in is not configured"}
	}

	state, verifier := oauth.NewState()
	if err := session.PutOAuthState(c, state, verifier); err != nil {
		return &Error{Status: http.StatusInternalServerError, Message: "Failed to start sign-in", Err: err}
	}

	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state, verifier))
}

// Callback completes the authorization-code flow. The pending state is
// cleared on every attempt, so a callback URL cannot be replayed.
func (h *OAuthHandler) Callback(c echo.Context) error {
	if h.provider == nil {
		return &Error{Status: http.StatusNotFound, Message: "Google sign-in is not configured"}
	}

	expected, verifier := session.PopOAuthState(c)
	logger := h.logger.With(zap.String("provider", h.provider.Name()))

	if reason := c.QueryParam("error"); reason != "" {
		logger.Info("federated sign-in cancelled", zap.String("reason", reason))
		return &Error{Status: http.StatusUnauthorized, Message: "Sign-in was cancelled"}
	}

	state := c.QueryParam("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return &Error{Status: http.StatusBadRequest, Message: "Invalid OAuth state"}
	}

	code := c.QueryParam("code")
	if code == "" {
		return &Error{Status: http.StatusBadRequest, Message: "Missing authorization code"}
	}

	identity, err := h.provider.Identity(c.Request().Context(), code, verifier)
	if err != nil {
		logger.Warn("federated identity lookup failed", zap.Error(err))
		return &Error{Status: http.StatusUnauthorized, Message: "Sign-in with the provider failed", Err: err}
	}

	result, err := h.auth.LoginWithOAuth(c.Request().Context(), *identity)
	if err != nil {
		return fromAuth(err, "Failed to sign in")
	}

	if err := session.Login(c, identityOf(result.User)); err != nil {
		return &Error{Status: http.StatusInternalServerError, Message: "Failed to sign in", Err: err}
	}

	return c.Redirect(http.StatusFound, h.redirectURL)
}
