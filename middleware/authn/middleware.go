package authn

import (
	"errors"
	"net/http"
	"strings"

	"github.com/WaqasAhmad313/next-auth-app/services/jwt"
	"github.com/WaqasAhmad313/next-auth-app/session"
	"github.com/labstack/echo/v4"
)

const PrincipalKey = "_authn_principal"

type Method string

const (
	MethodSession Method = "session"
	MethodBearer  Method = "bearer"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Method Method
}

type TokenVerifier interface {
	Verify(tokenString string, class jwt.TokenClass) (*jwt.Claims, error)
}

// Require resolves the caller from an Authorization bearer token or, when
// none is sent, from the session. Only access tokens are accepted.
func Require(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)

			if authHeader != "" {
				if !strings.HasPrefix(authHeader, "Bearer ") {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
				}

				tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
				if tokenString == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "Access token required")
				}

				claims, err := tokens.Verify(tokenString, jwt.Access)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, bearerMessage(err))
				}

				c.Set(PrincipalKey, &Principal{UserID: claims.UserID, Email: claims.Email, Method: MethodBearer})
				return next(c)
			}

			if identity, ok := session.CurrentUser(c); ok {
				c.Set(PrincipalKey, &Principal{UserID: identity.ID, Email: identity.Email, Method: MethodSession})
				return next(c)
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
	}
}

func bearerMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return "Access token has expired"
	case errors.Is(err, jwt.ErrMalformedToken):
		return "Malformed access token"
	case errors.Is(err, jwt.ErrWrongTokenClass):
		return "Refresh tokens cannot be used for authentication"
	default:
		return "Invalid access token"
	}
}

func GetPrincipal(c echo.Context) *Principal {
	if principal, ok := c.Get(PrincipalKey).(*Principal); ok {
		return principal
	}
	return nil
}

func GetUserID(c echo.Context) string {
	if principal := GetPrincipal(c); principal != nil {
		return principal.UserID
	}
	return ""
}
