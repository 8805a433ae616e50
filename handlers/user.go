package handlers

import (
	"net/http"

	"github.com/WaqasAhmad313/next-auth-app/middleware/authn"
	"github.com/WaqasAhmad313/next-auth-app/services/auth"
	"github.com/WaqasAhmad313/next-auth-app/session"
	"github.com/labstack/echo/v4"
)

type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Image    *string `json:"image,omitempty" validate:"omitempty,url"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
}

type UserHandler struct {
	auth AuthService
}

func NewUserHandler(authService AuthService) *UserHandler {
	return &UserHandler{auth: authService}
}

func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.auth.GetUserByID(c.Request().Context(), authn.GetUserID(c))
	if err != nil {
		return fromAuth(err, "Failed to fetch user data")
	}
	return ok(c, "User fetched successfully", user)
}

// Update applies a partial profile update to the caller. A session caller
// has its session identity refreshed to match.
func (h *UserHandler) Update(c echo.Context) error {
	var req UpdateUserRequest
	if err := bind(c, &req, "Invalid update data"); err != nil {
		return err
	}

	user, err := h.auth.UpdateUserByID(c.Request().Context(), authn.GetUserID(c), auth.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Image:    req.Image,
		Password: req.Password,
	})
	if err != nil {
		return fromAuth(err, "Failed to update user")
	}

	if principal := authn.GetPrincipal(c); principal != nil && principal.Method == authn.MethodSession {
		if err := session.Login(c, identityOf(user)); err != nil {
			return &Error{Status: http.StatusInternalServerError, Message: "Failed to update user", Err: err}
		}
	}

	return ok(c, "User updated successfully", user)
}
