package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"kkp/internal/entity"
	"kkp/internal/idp"
	"kkp/internal/repository"
	"kkp/internal/testutil"
	"kkp/internal/totp"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testMFAKey   = "JBSWY3DPEHPK3PXP"
	testPassword = "correct horse battery"
)

var testSigningKey = []byte("0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeIdentities struct {
	identity *idp.Identity
	err      error
	calls    int
}

func (f *fakeIdentities) Verify(_ context.Context, _ string) (*idp.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	identity := *f.identity
	return &identity, nil
}

type testEnv struct {
	db         *gorm.DB
	clock      *fakeClock
	users      repository.UserRepository
	logs       repository.SecurityLogRepository
	ledger     *SessionLedger
	identities *fakeIdentities
	service    *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	logger, _ := test.NewNullLogger()

	env := &testEnv{
		db:         db,
		clock:      clock,
		users:      repository.NewUserRepository(db),
		logs:       repository.NewSecurityLogRepository(db),
		ledger:     NewSessionLedger(repository.NewSessionRepository(db), testSigningKey, DefaultSessionTTL, clock),
		identities: &fakeIdentities{},
	}
	env.service = NewAuthService(
		env.users,
		repository.NewExternalAuthRepository(db),
		env.logs,
		env.ledger,
		BcryptPasswordHasher{Cost: bcrypt.MinCost},
		NewTOTPProvider("KKP"),
		env.identities,
		clock,
		logger,
		AuthConfig{MFAIssuer: "KKP"},
	)
	return env
}

func (e *testEnv) register(t *testing.T, email string) *TokenResult {
	t.Helper()
	result, err := e.service.Register(context.Background(), RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  testPassword,
	})
	require.NoError(t, err)
	return result
}

func (e *testEnv) registerWithMFA(t *testing.T, email string) *entity.User {
	t.Helper()
	e.register(t, email)
	user, err := e.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	key := testMFAKey
	require.NoError(t, e.users.SetMfaKey(context.Background(), user.ID, &key))
	user.MfaKey = &key
	return user
}

func (e *testEnv) currentCode(t *testing.T) string {
	t.Helper()
	code, err := totp.Code(testMFAKey, e.clock.Now())
	require.NoError(t, err)
	return code
}

func (e *testEnv) wrongCode(t *testing.T) string {
	t.Helper()
	return e.wrongCodeFor(t, testMFAKey)
}

func (e *testEnv) wrongCodeFor(t *testing.T, secret string) string {
	t.Helper()
	previous, next, err := totp.Codes(secret, e.clock.Now())
	require.NoError(t, err)
	for _, candidate := range []string{"000000", "111111", "222222"} {
		if candidate != previous && candidate != next {
			return candidate
		}
	}
	t.Fatal("no wrong code available")
	return ""
}

func (e *testEnv) sessionRow(t *testing.T, id int64) entity.Session {
	t.Helper()
	var session entity.Session
	require.NoError(t, e.db.First(&session, id).Error)
	return session
}

func (e *testEnv) actions(t *testing.T, userID int64) []entity.SecurityAction {
	t.Helper()
	logs, err := e.logs.ListByUser(context.Background(), userID, 0)
	require.NoError(t, err)
	actions := make([]entity.SecurityAction, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		actions = append(actions, logs[i].Action)
	}
	return actions
}
