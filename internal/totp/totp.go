// Package totp computes RFC 6238 one-time codes: HMAC-SHA1, 30 second step,
// six digits. Secrets are base32 strings; lowercase and missing padding are
// accepted.
package totp

import (
	"crypto/subtle"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

const (
	Period = 30
	Digits = 6

	// secretSize yields a 16 character base32 secret.
	secretSize = 10

	lookBehind = 5 * time.Second
	lookAhead  = time.Second
)

var codeOpts = pqtotp.ValidateOpts{
	Period:    Period,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Code returns the code for the time step containing at.
func Code(secret string, at time.Time) (string, error) {
	return pqtotp.GenerateCodeCustom(secret, at, codeOpts)
}

// Codes returns the two codes accepted at now: the one for now-5s and the
// one for now+1s. They are equal for most of each step.
func Codes(secret string, now time.Time) (string, string, error) {
	previous, err := Code(secret, now.Add(-lookBehind))
	if err != nil {
		return "", "", err
	}
	next, err := Code(secret, now.Add(lookAhead))
	if err != nil {
		return "", "", err
	}
	return previous, next, nil
}

// Verify reports whether code is one of Codes(secret, now). An empty secret
// or code, or a secret that is not valid base32, never verifies.
func Verify(secret string, code string, now time.Time) bool {
	if strings.TrimSpace(secret) == "" || len(code) != Digits {
		return false
	}
	previous, next, err := Codes(secret, now)
	if err != nil {
		return false
	}
	matchPrevious := subtle.ConstantTimeCompare([]byte(code), []byte(previous))
	matchNext := subtle.ConstantTimeCompare([]byte(code), []byte(next))
	return matchPrevious|matchNext == 1
}

// GenerateSecret returns a fresh random base32 secret without padding.
func GenerateSecret(issuer string) (string, error) {
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      fallbackIssuer(issuer),
		AccountName: "pending",
		Period:      Period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// ProvisioningURL builds the otpauth:// URI authenticator apps import.
func ProvisioningURL(account string, issuer string, secret string) string {
	issuer = fallbackIssuer(issuer)
	label := url.PathEscape(issuer + ":" + account)
	query := url.Values{}
	query.Set("secret", secret)
	query.Set("issuer", issuer)
	query.Set("algorithm", "SHA1")
	query.Set("digits", "6")
	query.Set("period", "30")
	return "otpauth://totp/" + label + "?" + query.Encode()
}

func fallbackIssuer(issuer string) string {
	if strings.TrimSpace(issuer) == "" {
		return "KKP"
	}
	return issuer
}
