package session

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
)

const (
	userIDKey        = "user_id"
	userEmailKey     = "user_email"
	userNameKey      = "user_name"
	deviceKey        = "device"
	oauthStateKey    = "oauth_state"
	oauthVerifierKey = "oauth_verifier"
)

var ErrNoSession = errors.New("session middleware not installed")

// Identity is what a signed-in session asserts about its user.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login rotates the session token and binds the identity to it.
func Login(c echo.Context, identity Identity) error {
	manager := GetManager(c)
	if manager == nil {
		return ErrNoSession
	}
	ctx := c.Request().Context()

	if err := manager.RenewToken(ctx); err != nil {
		return err
	}
	manager.Put(ctx, userIDKey, identity.ID)
	manager.Put(ctx, userEmailKey, identity.Email)
	manager.Put(ctx, userNameKey, identity.Name)
	manager.Put(ctx, deviceKey, DeviceLabel(c.Request().UserAgent()))
	return nil
}

func Logout(c echo.Context) error {
	manager := GetManager(c)
	if manager == nil {
		return ErrNoSession
	}
	return manager.Destroy(c.Request().Context())
}

func CurrentUser(c echo.Context) (*Identity, bool) {
	manager := GetManager(c)
	if manager == nil {
		return nil, false
	}
	ctx := c.Request().Context()

	id := manager.GetString(ctx, userIDKey)
	if id == "" {
		return nil, false
	}
	return &Identity{
		ID:    id,
		Email: manager.GetString(ctx, userEmailKey),
		Name:  manager.GetString(ctx, userNameKey),
	}, true
}

func Device(c echo.Context) string {
	manager := GetManager(c)
	if manager == nil {
		return ""
	}
	return manager.GetString(c.Request().Context(), deviceKey)
}

func PutOAuthState(c echo.Context, state, verifier string) error {
	manager := GetManager(c)
	if manager == nil {
		return ErrNoSession
	}
	ctx := c.Request().Context()
	manager.Put(ctx, oauthStateKey, state)
	manager.Put(ctx, oauthVerifierKey, verifier)
	return nil
}

// PopOAuthState returns and clears the pending state, so each value is
// accepted at most once.
func PopOAuthState(c echo.Context) (state, verifier string) {
	manager := GetManager(c)
	if manager == nil {
		return "", ""
	}
	ctx := c.Request().Context()
	return manager.PopString(ctx, oauthStateKey), manager.PopString(ctx, oauthVerifierKey)
}

// DeviceLabel summarises a user agent as "Browser on OS".
func DeviceLabel(userAgent string) string {
	if userAgent == "" {
		return "Unknown device"
	}

	ua := useragent.Parse(userAgent)

	browser := ua.Name
	if browser == "" {
		browser = "Unknown browser"
	}

	var parts []string
	parts = append(parts, browser)
	if ua.OS != "" {
		parts = append(parts, "on", ua.OS)
	}
	if ua.Mobile {
		parts = append(parts, "(mobile)")
	} else if ua.Tablet {
		parts = append(parts, "(tablet)")
	}
	return strings.Join(parts, " ")
}
