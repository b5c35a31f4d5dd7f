package service

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidSession         = errors.New("invalid session")
	ErrInvalidMFAToken        = errors.New("invalid mfa token")
	ErrInvalidMFACode         = errors.New("invalid mfa code")
	ErrMFAAlreadyEnabled      = errors.New("mfa already enabled")
	ErrMFANotEnabled          = errors.New("mfa not enabled")
	ErrWrongPassword          = errors.New("wrong password")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidIdentity        = errors.New("invalid identity token")
	ErrIdentityNotConfigured  = errors.New("identity login not configured")

	// ErrSessionAlreadyActive is returned by SessionLedger.Activate when the
	// session was activated by a concurrent request or no longer exists.
	ErrSessionAlreadyActive = errors.New("session already active")
)
