package service

import (
	"time"

	"kkp/internal/totp"
)

// TOTPProvider adapts the totp package to MFAProvider.
type TOTPProvider struct {
	Issuer string
}

func NewTOTPProvider(issuer string) *TOTPProvider {
	return &TOTPProvider{Issuer: issuer}
}

func (p *TOTPProvider) GenerateSecret() (string, error) {
	return totp.GenerateSecret(p.Issuer)
}

func (p *TOTPProvider) ProvisioningURL(account string, secret string) string {
	return totp.ProvisioningURL(account, p.Issuer, secret)
}

func (p *TOTPProvider) ValidateCode(secret string, code string, now time.Time) bool {
	return totp.Verify(secret, code, now)
}
