package middleware

import (
	"net/http"

	"kkp/internal/entity"

	"github.com/labstack/echo/v4"
)

// RequireRole lets through users whose role is at least min. It must run
// after RequireAuth.
func RequireRole(min entity.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := UserFromContext(c)
			if !ok {
				return unauthorized(c)
			}
			if user.Role < min {
				return c.JSON(http.StatusForbidden, map[string]string{"message": messageInsufficientPrivilege})
			}
			return next(c)
		}
	}
}
