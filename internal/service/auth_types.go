package service

import (
	"context"
	"time"

	"kkp/internal/idp"

	"golang.org/x/crypto/bcrypt"
)

// MFATokenTTL is the lifetime of the token handed out between password and
// TOTP verification.
const MFATokenTTL = 30 * time.Minute

const DefaultSessionTTL = 7 * 24 * time.Hour

type AuthConfig struct {
	// AllowRoleOnRegister honors the requested role at registration. Debug only.
	AllowRoleOnRegister bool
	MFAIssuer           string
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash string, password string) bool
}

type MFAProvider interface {
	GenerateSecret() (string, error)
	ProvisioningURL(account string, secret string) string
	ValidateCode(secret string, code string, now time.Time) bool
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*idp.Identity, error)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptPasswordHasher struct {
	Cost int
}

func (h BcryptPasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptPasswordHasher) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
