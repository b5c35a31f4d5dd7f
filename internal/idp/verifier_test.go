package idp

import (
	"context"
	"net/http"
	"testing"
	"time"

	"kkp/internal/token"

	"github.com/stretchr/testify/require"
)

const testAudience = "client-123.apps.googleusercontent.com"

func newTestVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	keys, err := token.ParseKeySet(map[string]string{"kid-1": certificatePEM(t, testSigningKey(t))})
	require.NoError(t, err)
	verifier := NewVerifier(staticKeys(keys), testAudience)
	verifier.now = func() time.Time { return now }
	return verifier
}

func identityClaims(now time.Time) map[string]any {
	return map[string]any{
		"iss":            "https://accounts.google.com",
		"aud":            testAudience,
		"sub":            "1098765432",
		"email":          "jane@example.com",
		"email_verified": true,
		"given_name":     "Jane",
		"family_name":    "Doe",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	verifier := newTestVerifier(t, now)

	for _, issuer := range Issuers {
		claims := identityClaims(now)
		claims["iss"] = issuer
		identity, err := verifier.Verify(context.Background(), signIDToken(t, testSigningKey(t), "kid-1", claims))
		require.NoError(t, err)
		require.Equal(t, &Identity{
			Subject:       "1098765432",
			Email:         "jane@example.com",
			EmailVerified: true,
			GivenName:     "Jane",
			FamilyName:    "Doe",
		}, identity)
	}
}

func TestVerifierRejectsClaimMismatches(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	verifier := newTestVerifier(t, now)

	cases := map[string]func(map[string]any){
		"wrong issuer":    func(c map[string]any) { c["iss"] = "https://evil.example.com" },
		"missing issuer":  func(c map[string]any) { delete(c, "iss") },
		"wrong audience":  func(c map[string]any) { c["aud"] = "someone-else" },
		"expired":         func(c map[string]any) { c["exp"] = now.Add(-time.Second).Unix() },
		"missing expiry":  func(c map[string]any) { delete(c, "exp") },
		"missing subject": func(c map[string]any) { delete(c, "sub") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			claims := identityClaims(now)
			mutate(claims)
			_, err := verifier.Verify(context.Background(), signIDToken(t, testSigningKey(t), "kid-1", claims))
			require.ErrorIs(t, err, ErrInvalidIdentity)
		})
	}
}

func TestVerifierRejectsBadSignatures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	verifier := newTestVerifier(t, now)

	_, err := verifier.Verify(context.Background(), signIDToken(t, testSigningKey(t), "kid-2", identityClaims(now)))
	require.ErrorIs(t, err, ErrInvalidIdentity)
	require.ErrorIs(t, err, token.ErrUnknownKey)

	hs, err := token.Encode(token.Claims(identityClaims(now)), []byte("0123456789abcdef"), time.Time{})
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), hs)
	require.ErrorIs(t, err, token.ErrUnsupportedAlgorithm)
}

func TestVerifierRequiresConfiguration(t *testing.T) {
	_, err := NewVerifier(staticKeys(nil), "").Verify(context.Background(), "a.b.c")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerifierWithEmptyCacheFailsClosed(t *testing.T) {
	server, _ := newCertServer(t, func(w http.ResponseWriter, _ int64) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	now := time.Unix(1_700_000_000, 0)
	verifier := NewVerifier(NewCertCache(server.URL, time.Second, quietLogger()), testAudience)
	verifier.now = func() time.Time { return now }

	_, err := verifier.Verify(context.Background(), signIDToken(t, testSigningKey(t), "kid-1", identityClaims(now)))
	require.ErrorIs(t, err, token.ErrUnknownKey)
}
