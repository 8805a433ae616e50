package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo and reports failures per
// json field. The otp tag accepts codes of exactly otpLength digits.
type Validator struct {
	validate  *validator.Validate
	otpLength int
}

func NewValidator(otpLength int) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// registration only fails for an empty tag or a nil func
	_ = validate.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		return isCode(fl.Field().String(), otpLength)
	})
	return &Validator{validate: validate, otpLength: otpLength}
}

func isCode(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	fields := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = v.describe(fe)
		}
	}
	return &Error{Status: http.StatusBadRequest, Message: "Invalid request data", Fields: fields}
}

func (v *Validator) describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "otp":
		return fmt.Sprintf("must be exactly %d digits", v.otpLength)
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "numeric":
		return "must contain only digits"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed the %s check", fe.Tag())
	}
}

// bind decodes and validates the request body. A rejected body is reported
// with message so each route keeps its own wording.
func bind(c echo.Context, req any, message string) error {
	if err := c.Bind(req); err != nil {
		return &Error{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err}
	}
	if err := c.Validate(req); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.Message = message
			return apiErr
		}
		return &Error{Status: http.StatusBadRequest, Message: message, Err: err}
	}
	return nil
}
