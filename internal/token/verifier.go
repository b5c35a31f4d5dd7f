package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks a signature for exactly one algorithm. Decode dispatches
// to the verifier whose Algorithm matches the token header.
type Verifier interface {
	Algorithm() string
	Verify(header Header, signingInput string, signature []byte) error
}

// KeySource resolves RS256 verification keys by key id.
type KeySource interface {
	Lookup(kid string) (PublicKeyMaterial, bool)
}

type hmacVerifier struct {
	secret []byte
}

// HMAC verifies HS256 tokens against a shared secret.
func HMAC(secret []byte) Verifier {
	return hmacVerifier{secret: secret}
}

func (hmacVerifier) Algorithm() string { return AlgHS256 }

func (v hmacVerifier) Verify(_ Header, signingInput string, signature []byte) error {
	if len(v.secret) == 0 {
		return ErrSignatureMismatch
	}
	if err := jwt.SigningMethodHS256.Verify(signingInput, signature, v.secret); err != nil {
		return ErrSignatureMismatch
	}
	return nil
}

type rsaVerifier struct {
	keys KeySource
}

// RSA verifies RS256 tokens with the key named by the header kid.
func RSA(keys KeySource) Verifier {
	return rsaVerifier{keys: keys}
}

func (rsaVerifier) Algorithm() string { return AlgRS256 }

func (v rsaVerifier) Verify(header Header, signingInput string, signature []byte) (err error) {
	if header.Kid == "" || v.keys == nil {
		return ErrUnknownKey
	}
	material, ok := v.keys.Lookup(header.Kid)
	if !ok || material.Key == nil {
		return ErrUnknownKey
	}
	defer func() {
		if recover() != nil {
			err = ErrSignatureMismatch
		}
	}()
	if err := jwt.SigningMethodRS256.Verify(signingInput, signature, material.Key); err != nil {
		return ErrSignatureMismatch
	}
	return nil
}
