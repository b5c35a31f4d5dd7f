package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kkp/internal/entity"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubAuth struct {
	sessions map[string]*entity.Session
	err      error
	seen     []string
}

func (s *stubAuth) Authenticate(_ context.Context, raw string) (*entity.Session, error) {
	s.seen = append(s.seen, raw)
	if s.err != nil {
		return nil, s.err
	}
	session, ok := s.sessions[raw]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return session, nil
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"none", nil, ""},
		{"raw authorization", map[string]string{"Authorization": "abc"}, "abc"},
		{"bearer authorization", map[string]string{"Authorization": "Bearer abc"}, "abc"},
		{"lowercase bearer", map[string]string{"Authorization": "bearer  abc "}, "abc"},
		{"x-token", map[string]string{"X-Token": "xyz"}, "xyz"},
		{"authorization wins", map[string]string{"Authorization": "abc", "X-Token": "xyz"}, "abc"},
		{"blank authorization falls through", map[string]string{"Authorization": "  ", "X-Token": "xyz"}, "xyz"},
		{"other scheme kept", map[string]string{"Authorization": "Basic abc"}, "Basic abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for name, value := range tt.headers {
				req.Header.Set(name, value)
			}
			assert.Equal(t, tt.want, extractToken(req))
		})
	}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthAndRole(t *testing.T) {
	auth := &stubAuth{sessions: map[string]*entity.Session{
		"regular": {ID: 1, User: entity.User{ID: 1, Role: entity.UserRoleRegular}},
		"vet":     {ID: 2, User: entity.User{ID: 2, Role: entity.UserRoleVet}},
		"admin":   {ID: 3, User: entity.User{ID: 3, Role: entity.UserRoleGlobalAdmin}},
	}}
	mw := AuthMiddleware{Auth: auth}

	e := echo.New()
	e.GET("/vet", func(c echo.Context) error {
		session, ok := SessionFromContext(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, map[string]int64{"session": session.ID})
	}, mw.RequireAuth, RequireRole(entity.UserRoleVet))

	tests := []struct {
		token  string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"unknown", http.StatusUnauthorized},
		{"regular", http.StatusForbidden},
		{"vet", http.StatusOK},
		{"admin", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/vet", nil)
		if tt.token != "" {
			req.Header.Set("X-Token", tt.token)
		}
		rec := serve(e, req)
		assert.Equal(t, tt.status, rec.Code, tt.token)
	}
}

func TestRequireAuthWithoutAuthenticator(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, AuthMiddleware{}.RequireAuth)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "abc")
	rec := serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid session."}`, rec.Body.String())
}

func TestRequireRoleWithoutSession(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole(entity.UserRoleRegular))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiterPerKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(rate.Limit(1), 2, time.Minute)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
}

func TestRateLimiterDropsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(rate.Limit(1), 1, time.Minute)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	limiter.Allow("b")
	require.Equal(t, 2, limiter.size())

	now = now.Add(2 * time.Minute)
	limiter.Allow("c")
	assert.Equal(t, 1, limiter.size())
}

func TestRateLimiterMiddleware(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(0.001), 1, 0)
	e := echo.New()
	e.POST("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, limiter.Middleware())

	first := serve(e, httptest.NewRequest(http.MethodPost, "/", nil))
	second := serve(e, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"message":"Too many requests."}`, second.Body.String())
}
