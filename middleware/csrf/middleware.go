package csrf

import (
	"net/http"
	"strings"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const ContextKey = "csrf"

// Middleware protects cookie-authenticated requests. Requests that carry a
// bearer token are not exposed to cross-site forgery and skip the check.
func Middleware(cfg config.CSRFConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	var sameSite http.SameSite
	switch cfg.CookieSameSite {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "none":
		sameSite = http.SameSiteNoneMode
	default:
		sameSite = http.SameSiteDefaultMode
	}

	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        hasBearerToken,
		TokenLength:    cfg.TokenLength,
		TokenLookup:    cfg.TokenLookup,
		ContextKey:     ContextKey,
		CookieName:     cfg.CookieName,
		CookiePath:     cfg.CookiePath,
		CookieMaxAge:   cfg.CookieMaxAge,
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: sameSite,
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "Invalid or missing CSRF token")
		},
	})
}

func hasBearerToken(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
}

func GetToken(c echo.Context) string {
	if token, ok := c.Get(ContextKey).(string); ok {
		return token
	}
	return ""
}
