package middleware

import (
	"context"
	"net/http"
	"strings"

	"kkp/internal/entity"

	"github.com/labstack/echo/v4"
)

const (
	headerToken = "X-Token"

	messageInvalidSession        = "Invalid session."
	messageInsufficientPrivilege = "Insufficient privileges."
)

type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*entity.Session, error)
}

type AuthMiddleware struct {
	Auth Authenticator
}

func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.Auth == nil {
			return unauthorized(c)
		}
		raw := extractToken(c.Request())
		if raw == "" {
			return unauthorized(c)
		}
		session, err := m.Auth.Authenticate(c.Request().Context(), raw)
		if err != nil || session == nil {
			return unauthorized(c)
		}
		SetAuthContext(c, session)
		return next(c)
	}
}

// extractToken reads Authorization, then X-Token. The first non-empty header
// wins and an optional "Bearer " prefix is dropped.
func extractToken(r *http.Request) string {
	for _, name := range []string{echo.HeaderAuthorization, headerToken} {
		value := strings.TrimSpace(r.Header.Get(name))
		if value == "" {
			continue
		}
		if scheme, rest, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "Bearer") {
			value = strings.TrimSpace(rest)
		}
		return value
	}
	return ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"message": messageInvalidSession})
}
