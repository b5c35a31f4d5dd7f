package idp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"kkp/internal/token"
)

var Issuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	ErrInvalidIdentity = errors.New("invalid identity token")
	ErrNotConfigured   = errors.New("identity verification is not configured")
)

// KeyProvider supplies RS256 verification keys. *CertCache implements it.
type KeyProvider interface {
	Keys(ctx context.Context) token.KeySet
}

// Identity is the subset of ID token claims used to find or create a user.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

type Verifier struct {
	keys     KeyProvider
	audience string
	now      func() time.Time
}

func NewVerifier(keys KeyProvider, audience string) *Verifier {
	return &Verifier{keys: keys, audience: audience, now: time.Now}
}

// Verify checks the RS256 signature with the provider keys, then the issuer,
// audience, payload expiry and subject.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if v.keys == nil || v.audience == "" {
		return nil, ErrNotConfigured
	}
	now := v.now()

	claims, err := token.DecodeAt(idToken, now, token.RSA(v.keys.Keys(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}

	issuer, _ := claims.GetString("iss")
	if !slices.Contains(Issuers, issuer) {
		return nil, fmt.Errorf("%w: wrong issuer %q", ErrInvalidIdentity, issuer)
	}
	if audience, _ := claims.GetString("aud"); audience != v.audience {
		return nil, fmt.Errorf("%w: wrong audience", ErrInvalidIdentity)
	}
	expiresAt, ok := claims.GetInt64("exp")
	if !ok || expiresAt <= now.Unix() {
		return nil, fmt.Errorf("%w: expired", ErrInvalidIdentity)
	}
	subject, _ := claims.GetString("sub")
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidIdentity)
	}

	identity := &Identity{Subject: subject}
	identity.Email, _ = claims.GetString("email")
	identity.EmailVerified, _ = claims["email_verified"].(bool)
	identity.GivenName, _ = claims.GetString("given_name")
	identity.FamilyName, _ = claims.GetString("family_name")
	return identity, nil
}
