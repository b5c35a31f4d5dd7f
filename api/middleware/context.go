package middleware

import (
	"kkp/internal/entity"

	"github.com/labstack/echo/v4"
)

const contextSessionKey = "auth_session"

// SetAuthContext stores the authenticated session. The session carries its
// user, so handlers read both from here.
func SetAuthContext(c echo.Context, session *entity.Session) {
	c.Set(contextSessionKey, session)
}

func SessionFromContext(c echo.Context) (*entity.Session, bool) {
	session, ok := c.Get(contextSessionKey).(*entity.Session)
	return session, ok && session != nil
}

func UserFromContext(c echo.Context) (*entity.User, bool) {
	session, ok := SessionFromContext(c)
	if !ok {
		return nil, false
	}
	return &session.User, true
}
