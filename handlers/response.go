package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func ok(c echo.Context, message string, data any) error {
	return respond(c, http.StatusOK, message, data)
}

// UserSummary is the identity a sign-in asserts.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LoginData struct {
	User                UserSummary `json:"user"`
	AccessToken         string      `json:"accessToken"`
	RefreshToken        string      `json:"refreshToken"`
	AccessTokenExpires  int64       `json:"accessTokenExpires" doc:"Unix seconds"`
	RefreshTokenExpires int64       `json:"refreshTokenExpires" doc:"Unix seconds"`
}

type SignupData struct {
	UserID string `json:"userId"`
}

type SessionData struct {
	User   UserSummary `json:"user"`
	Device string      `json:"device"`
}

type CSRFData struct {
	CSRFToken string `json:"csrfToken"`
}
