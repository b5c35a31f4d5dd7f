package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kkp/api/handler"
	"kkp/api/middleware"
	"kkp/api/routes"
	"kkp/internal/entity"
	"kkp/internal/idp"
	"kkp/internal/repository"
	"kkp/internal/service"
	"kkp/internal/testutil"
	"kkp/internal/totp"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	testPassword = "correct horse battery"
	testMFAKey   = "JBSWY3DPEHPK3PXP"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type stubIdentities struct {
	identity *idp.Identity
	err      error
}

func (s stubIdentities) Verify(_ context.Context, _ string) (*idp.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	identity := *s.identity
	return &identity, nil
}

type apiEnv struct {
	echo   *echo.Echo
	db     *gorm.DB
	clock  fixedClock
	router *routes.Router
}

type envOption func(*envConfig)

type envConfig struct {
	identities service.IdentityVerifier
	limited    bool
}

func withIdentities(identities service.IdentityVerifier) envOption {
	return func(c *envConfig) { c.identities = identities }
}

func withDefaultRateLimits() envOption {
	return func(c *envConfig) { c.limited = true }
}

func newAPIEnv(t *testing.T, opts ...envOption) *apiEnv {
	t.Helper()
	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	db := testutil.NewDB(t)
	clock := fixedClock{now: time.Unix(1_700_000_000, 0)}
	logger, _ := test.NewNullLogger()

	ledger := service.NewSessionLedger(repository.NewSessionRepository(db), []byte("0123456789abcdef"), service.DefaultSessionTTL, clock)
	svc := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewExternalAuthRepository(db),
		repository.NewSecurityLogRepository(db),
		ledger,
		service.BcryptPasswordHasher{Cost: bcrypt.MinCost},
		service.NewTOTPProvider("KKP"),
		cfg.identities,
		clock,
		logger,
		service.AuthConfig{MFAIssuer: "KKP"},
	)

	e := echo.New()
	router := routes.NewRouter(e, handler.NewAuthHandler(svc, validator.New(), logger), middleware.AuthMiddleware{Auth: svc})
	if !cfg.limited {
		router.AuthRate = middleware.NewRateLimiter(rate.Inf, 1, 0)
		router.LoginRate = middleware.NewRateLimiter(rate.Inf, 1, 0)
	}
	router.RegisterRoutes()

	return &apiEnv{echo: e, db: db, clock: clock, router: router}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	e.echo.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) authed(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{echo.HeaderAuthorization: token})
}

func (e *apiEnv) register(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", map[string]any{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      email,
		"password":   testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[map[string]any](t, rec)["token"].(string)
}

func (e *apiEnv) enableMFA(t *testing.T, token string) {
	t.Helper()
	rec := e.authed(t, http.MethodPost, "/user/mfa/enable", token, map[string]string{
		"key":      testMFAKey,
		"code":     e.code(t),
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (e *apiEnv) setRole(t *testing.T, email string, role entity.UserRole) {
	t.Helper()
	require.NoError(t, e.db.Model(&entity.User{}).Where("email = ?", email).Update("role", role).Error)
}

func (e *apiEnv) code(t *testing.T) string {
	t.Helper()
	code, err := totp.Code(testMFAKey, e.clock.Now())
	require.NoError(t, err)
	return code
}

func (e *apiEnv) wrongCode(t *testing.T) string {
	t.Helper()
	previous, next, err := totp.Codes(testMFAKey, e.clock.Now())
	require.NoError(t, err)
	for _, candidate := range []string{"000000", "111111", "222222"} {
		if candidate != previous && candidate != next {
			return candidate
		}
	}
	t.Fatal("no wrong code candidate")
	return ""
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["message"]
}
