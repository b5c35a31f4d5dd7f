package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const certificateMarker = "-----BEGIN CERTIFICATE-----"

// PublicKeyMaterial is one RS256 verification key.
type PublicKeyMaterial struct {
	KeyID       string
	Key         *rsa.PublicKey
	Certificate bool
}

// KeySet maps key ids to verification keys. A missing kid is reported by
// Lookup, never replaced by a default key.
type KeySet map[string]PublicKeyMaterial

func (s KeySet) Lookup(kid string) (PublicKeyMaterial, bool) {
	material, ok := s[kid]
	if !ok || material.Key == nil {
		return PublicKeyMaterial{}, false
	}
	return material, true
}

func (s KeySet) KeyIDs() []string {
	ids := make([]string, 0, len(s))
	for kid := range s {
		ids = append(ids, kid)
	}
	sort.Strings(ids)
	return ids
}

// ParseKeySet builds a KeySet from kid -> PEM entries. Each PEM may hold a
// public key or an X.509 certificate. Entries that fail to parse are left
// out and reported in the joined error; the rest of the set is still usable.
func ParseKeySet(pems map[string]string) (KeySet, error) {
	set := make(KeySet, len(pems))
	var errs []error
	for kid, data := range pems {
		material, err := ParsePublicKeyMaterial(kid, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set[kid] = material
	}
	return set, errors.Join(errs...)
}

func ParsePublicKeyMaterial(kid string, data string) (PublicKeyMaterial, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(data))
	if err != nil {
		return PublicKeyMaterial{}, fmt.Errorf("token: key %q: %w", kid, err)
	}
	return PublicKeyMaterial{
		KeyID:       kid,
		Key:         key,
		Certificate: strings.Contains(data, certificateMarker),
	}, nil
}
