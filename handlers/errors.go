package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Error is a failure with the status and message it is rendered with.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func statusForKind(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindInvalidCredential:
		return http.StatusBadRequest
	case auth.KindAuthorization:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fromAuth maps a service error onto a response. fallback is the message of
// dependency failures, whose details stay in the server log.
func fromAuth(err error, fallback string) *Error {
	kind := auth.KindOf(err)
	status := statusForKind(kind)

	if kind == auth.KindDependency {
		return &Error{Status: status, Message: fallback, Err: err}
	}

	apiErr := &Error{Status: status, Message: sentence(err.Error()), Err: err}

	var validation *auth.ValidationError
	if errors.As(err, &validation) {
		apiErr.Message = "Invalid request data"
		apiErr.Fields = validation.Fields
	}
	return apiErr
}

// fromCredentialCheck is fromAuth for routes where a rejected credential
// means the caller is not authenticated.
func fromCredentialCheck(err error, fallback string) *Error {
	apiErr := fromAuth(err, fallback)
	if auth.KindOf(err) == auth.KindInvalidCredential {
		apiErr.Status = http.StatusUnauthorized
	}
	return apiErr
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ErrorHandler renders every error in the response envelope. Server-side
// failures are logged with their cause and answered with a generic message.
func ErrorHandler(logger *logging.Service) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := toError(err)

		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", apiErr.Status),
				zap.Error(err),
			)
		}

		body := Envelope{Success: false, Message: apiErr.Message}
		if len(apiErr.Fields) > 0 {
			body.Error = apiErr.Fields
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(apiErr.Status)
		} else {
			writeErr = c.JSON(apiErr.Status, body)
		}
		if writeErr != nil {
			logger.Warn("failed to write error response", zap.Error(writeErr))
		}
	}
}

func toError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if text, ok := httpErr.Message.(string); ok && text != "" {
			message = sentence(text)
		}
		if httpErr.Code >= http.StatusInternalServerError {
			message = "Internal server error"
		}
		return &Error{Status: httpErr.Code, Message: strings.TrimSpace(message), Err: err}
	}

	return fromAuth(err, "Internal server error")
}
