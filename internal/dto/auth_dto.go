package dto

import (
	"time"

	"kkp/internal/service"
)

type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	// Role is honored only in debug deployments.
	Role *int `json:"role" validate:"omitempty,oneof=0 10 100 999"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginMFARequest struct {
	MFAToken string `json:"mfa_token" validate:"required"`
	MFACode  string `json:"mfa_code" validate:"required,len=6,numeric"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// TokenResponse is returned for a full session token. ExpiresAt is unix
// seconds.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type MFATokenResponse struct {
	MFAToken  string `json:"mfa_token"`
	ExpiresAt int64  `json:"expires_at"`
}

func TokenResponseFromResult(result service.TokenResult) TokenResponse {
	return TokenResponse{Token: result.Token, ExpiresAt: unixSeconds(result.ExpiresAt)}
}

func MFATokenResponseFromResult(result service.TokenResult) MFATokenResponse {
	return MFATokenResponse{MFAToken: result.Token, ExpiresAt: unixSeconds(result.ExpiresAt)}
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
