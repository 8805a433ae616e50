package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const sessionManagerKey = "session_manager"

// Middleware loads the session before the handler runs and commits it before
// the response is written. Handler errors are rendered inside the session
// scope so the cookie still goes out with error responses.
func Middleware(manager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if manager == nil {
				return next(c)
			}

			c.Set(sessionManagerKey, manager)

			original := c.Response().Writer
			defer func() { c.Response().Writer = original }()

			handler := manager.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				c.Response().Writer = w
				if err := next(c); err != nil {
					c.Error(err)
				}
			}))

			handler.ServeHTTP(original, c.Request())
			return nil
		}
	}
}

func GetManager(c echo.Context) *Manager {
	if manager, ok := c.Get(sessionManagerKey).(*Manager); ok {
		return manager
	}
	return nil
}
