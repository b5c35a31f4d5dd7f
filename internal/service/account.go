package service

import (
	"context"
	"strings"

	"kkp/internal/entity"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// ProvisionMFA returns a fresh secret for the user to load into an
// authenticator app. Nothing is stored until EnableMFA.
func (s *AuthService) ProvisionMFA(ctx context.Context, user *entity.User) (*MFAProvisioning, error) {
	if user.MFAEnabled() {
		return nil, ErrMFAAlreadyEnabled
	}
	secret, err := s.mfaProvider.GenerateSecret()
	if err != nil {
		return nil, err
	}
	return &MFAProvisioning{
		Key: secret,
		URL: s.mfaProvider.ProvisioningURL(user.Email, secret),
	}, nil
}

// EnableMFA stores key once the user proves possession with a code from it
// and confirms the password.
func (s *AuthService) EnableMFA(ctx context.Context, user *entity.User, input EnableMFAInput) (*entity.User, error) {
	if user.MFAEnabled() {
		return nil, ErrMFAAlreadyEnabled
	}
	key := strings.ToUpper(strings.TrimSpace(input.Key))
	if key == "" {
		return nil, ErrInvalidInput
	}
	if !s.mfaProvider.ValidateCode(key, input.Code, s.now()) {
		return nil, ErrInvalidMFACode
	}
	if !s.passwordHash.Verify(user.Password, input.Password) {
		return nil, ErrWrongPassword
	}

	if err := s.users.SetMfaKey(ctx, user.ID, &key); err != nil {
		return nil, err
	}
	user.MfaKey = &key
	s.logSecurity(ctx, &user.ID, nil, entity.MFAEnabled, nil)
	return user, nil
}

func (s *AuthService) DisableMFA(ctx context.Context, user *entity.User, input DisableMFAInput) (*entity.User, error) {
	if !user.MFAEnabled() {
		return nil, ErrMFANotEnabled
	}
	if !s.mfaProvider.ValidateCode(*user.MfaKey, input.Code, s.now()) {
		return nil, ErrInvalidMFACode
	}
	if !s.passwordHash.Verify(user.Password, input.Password) {
		return nil, ErrWrongPassword
	}

	if err := s.users.SetMfaKey(ctx, user.ID, nil); err != nil {
		return nil, err
	}
	user.MfaKey = nil
	s.logSecurity(ctx, &user.ID, nil, entity.MFADisabled, nil)
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, user *entity.User, input ChangePasswordInput) (*entity.User, error) {
	if input.NewPassword == "" {
		return nil, ErrInvalidInput
	}
	if !s.passwordHash.Verify(user.Password, input.OldPassword) {
		return nil, ErrWrongPassword
	}

	hash, err := s.passwordHash.Hash(input.NewPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.Password = hash
	s.logSecurity(ctx, &user.ID, nil, entity.PasswordChanged, nil)
	return user, nil
}

func (s *AuthService) RegisterDevice(ctx context.Context, session *entity.Session, fcmToken string) error {
	return s.ledger.RegisterDevice(ctx, session, strings.TrimSpace(fcmToken))
}

func (s *AuthService) UnregisterDevice(ctx context.Context, session *entity.Session) error {
	return s.ledger.UnregisterDevice(ctx, session)
}

func (s *AuthService) UpdateLocation(ctx context.Context, session *entity.Session, longitude, latitude float64) error {
	return s.ledger.UpdateLocation(ctx, session, longitude, latitude)
}

// ListUsers pages through users; page starts at 1.
func (s *AuthService) ListUsers(ctx context.Context, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, pageSize, pageSize*(page-1))
	if err != nil {
		return nil, err
	}
	return &UserPage{Count: count, Users: users}, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) AdminDisableMFA(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.MFAEnabled() {
		return user, nil
	}
	if err := s.users.SetMfaKey(ctx, user.ID, nil); err != nil {
		return nil, err
	}
	user.MfaKey = nil
	s.logSecurity(ctx, &user.ID, nil, entity.MFADisabled, map[string]any{"by": "admin"})
	return user, nil
}

// RevokeUserSessions deletes every session of the user, pending ones
// included.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID int64) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	revoked, err := s.ledger.RevokeAll(ctx, user.ID)
	if err != nil {
		return err
	}
	s.logSecurity(ctx, &user.ID, nil, entity.SessionRevoked, map[string]any{"scope": "all", "count": revoked})
	return nil
}
