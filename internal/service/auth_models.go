package service

import (
	"time"

	"kkp/internal/entity"
)

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      *entity.UserRole
	IPAddress *string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
}

type MFALoginInput struct {
	MFAToken  string
	Code      string
	IPAddress *string
}

type IdentityLoginInput struct {
	IDToken   string
	IPAddress *string
}

type EnableMFAInput struct {
	Key      string
	Code     string
	Password string
}

type DisableMFAInput struct {
	Code     string
	Password string
}

type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

type TokenResult struct {
	Token     string
	ExpiresAt time.Time
}

// LoginResult carries a full session token, or an MFA token when
// MFARequired is set.
type LoginResult struct {
	TokenResult
	MFARequired bool
}

type MFAProvisioning struct {
	Key string
	URL string
}

type UserPage struct {
	Count int64
	Users []entity.User
}
