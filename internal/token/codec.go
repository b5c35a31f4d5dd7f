// Package token encodes and decodes compact signed tokens in the
// header.payload.signature form. The expiry lives in the header as "exp"
// (unix seconds, 0 = never expires), not in the payload.
package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AlgHS256 = "HS256"
	AlgRS256 = "RS256"

	typeJWT = "JWT"
)

var (
	ErrInvalid              = errors.New("invalid token")
	ErrMalformed            = fmt.Errorf("%w: malformed", ErrInvalid)
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported algorithm", ErrInvalid)
	ErrExpired              = fmt.Errorf("%w: expired", ErrInvalid)
	ErrSignatureMismatch    = fmt.Errorf("%w: signature mismatch", ErrInvalid)
	ErrUnknownKey           = fmt.Errorf("%w: unknown key", ErrInvalid)

	ErrEmptySecret = errors.New("token: empty signing secret")
)

var segmentEncoding = base64.RawURLEncoding.Strict()

// Header is the first token segment.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Exp int64  `json:"exp"`
	Kid string `json:"kid,omitempty"`
}

type rawHeader struct {
	Alg string          `json:"alg"`
	Typ string          `json:"typ"`
	Exp json.RawMessage `json:"exp"`
	Kid string          `json:"kid"`
}

// Encode signs claims with HS256. A zero expiresAt encodes exp=0, which
// Decode treats as "never expires".
func Encode(claims Claims, secret []byte, expiresAt time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	var exp int64
	if !expiresAt.IsZero() {
		exp = expiresAt.Unix()
	}
	if claims == nil {
		claims = Claims{}
	}

	header, err := encodeSegment(Header{Alg: AlgHS256, Typ: typeJWT, Exp: exp})
	if err != nil {
		return "", err
	}
	payload, err := encodeSegment(claims)
	if err != nil {
		return "", err
	}

	signingInput := header + "." + payload
	signature, err := jwt.SigningMethodHS256.Sign(signingInput, secret)
	if err != nil {
		return "", err
	}
	return signingInput + "." + segmentEncoding.EncodeToString(signature), nil
}

// Decode verifies raw against the current wall clock.
func Decode(raw string, verifiers ...Verifier) (Claims, error) {
	return DecodeAt(raw, time.Now(), verifiers...)
}

// DecodeAt verifies raw as of now and returns its claims. The verifier is
// picked once by the header's alg; a token whose algorithm has no matching
// verifier is rejected. Every failure wraps ErrInvalid.
func DecodeAt(raw string, now time.Time, verifiers ...Verifier) (Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, ErrMalformed
	}

	headerJSON, err := decodeSegment(parts[0])
	if err != nil {
		return nil, ErrMalformed
	}
	header, err := parseHeader(headerJSON)
	if err != nil {
		return nil, err
	}
	if header.Alg != AlgHS256 && header.Alg != AlgRS256 {
		return nil, ErrUnsupportedAlgorithm
	}
	if header.Typ != typeJWT {
		return nil, ErrMalformed
	}
	if expired(header.expValue, now) {
		return nil, ErrExpired
	}

	signature, err := decodeSegment(parts[2])
	if err != nil {
		return nil, ErrMalformed
	}

	verifier := selectVerifier(header.Alg, verifiers)
	if verifier == nil {
		return nil, ErrUnsupportedAlgorithm
	}
	if err := verifier.Verify(header.Header, parts[0]+"."+parts[1], signature); err != nil {
		if errors.Is(err, ErrInvalid) {
			return nil, err
		}
		return nil, ErrSignatureMismatch
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, ErrMalformed
	}
	return parseClaims(payload)
}

type decodedHeader struct {
	Header
	expValue float64
}

func parseHeader(data []byte) (decodedHeader, error) {
	var raw rawHeader
	if err := json.Unmarshal(data, &raw); err != nil {
		return decodedHeader{}, ErrMalformed
	}
	h := decodedHeader{Header: Header{Alg: raw.Alg, Typ: raw.Typ, Kid: raw.Kid}}
	if len(raw.Exp) > 0 {
		exp, err := parseExp(raw.Exp)
		if err != nil {
			return decodedHeader{}, err
		}
		h.expValue = exp
		h.Exp = int64(exp)
	}
	return h, nil
}

// parseExp accepts only a bare JSON number; "exp":"0" is not "never expires".
func parseExp(data json.RawMessage) (float64, error) {
	if data[0] == '"' {
		return 0, ErrMalformed
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil || number == "" {
		return 0, ErrMalformed
	}
	exp, err := number.Float64()
	if err != nil {
		return 0, ErrMalformed
	}
	return exp, nil
}

func expired(exp float64, now time.Time) bool {
	if exp == 0 {
		return false
	}
	return exp <= float64(now.Unix())+float64(now.Nanosecond())/float64(time.Second)
}

func selectVerifier(alg string, verifiers []Verifier) Verifier {
	for _, v := range verifiers {
		if v != nil && v.Algorithm() == alg {
			return v
		}
	}
	return nil
}

func parseClaims(data []byte) (Claims, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var claims Claims
	if err := decoder.Decode(&claims); err != nil || claims == nil {
		return nil, ErrMalformed
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, ErrMalformed
	}
	return claims, nil
}

func encodeSegment(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return segmentEncoding.EncodeToString(data), nil
}

func decodeSegment(segment string) ([]byte, error) {
	return segmentEncoding.DecodeString(strings.TrimRight(segment, "="))
}
