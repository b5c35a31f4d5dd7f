package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"kkp/internal/entity"
	"kkp/internal/idp"
	"kkp/internal/metrics"
	"kkp/internal/repository"
	"kkp/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	flowRegister = "register"
	flowPassword = "password"
	flowMFA      = "mfa"
	flowIdentity = "identity"
)

type AuthService struct {
	users         repository.UserRepository
	externalAuths repository.ExternalAuthRepository
	securityLogs  repository.SecurityLogRepository
	ledger        *SessionLedger

	passwordHash PasswordHasher
	// dummyHash is compared against on unknown emails so both login
	// failures cost the same bcrypt work.
	dummyHash   string
	mfaProvider MFAProvider
	identities  IdentityVerifier
	clock       Clock
	logger      logrus.FieldLogger
	config      AuthConfig
}

func NewAuthService(
	users repository.UserRepository,
	externalAuths repository.ExternalAuthRepository,
	securityLogs repository.SecurityLogRepository,
	ledger *SessionLedger,
	passwordHash PasswordHasher,
	mfaProvider MFAProvider,
	identities IdentityVerifier,
	clock Clock,
	logger logrus.FieldLogger,
	config AuthConfig,
) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dummyHash, err := passwordHash.Hash(uuid.NewString())
	if err != nil {
		logger.WithError(err).Warn("generate dummy password hash")
	}
	return &AuthService{
		users:         users,
		externalAuths: externalAuths,
		securityLogs:  securityLogs,
		ledger:        ledger,
		passwordHash:  passwordHash,
		dummyHash:     dummyHash,
		mfaProvider:   mfaProvider,
		identities:    identities,
		clock:         clock,
		logger:        logger,
		config:        config,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*TokenResult, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" ||
		strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.AuthLoginsTotal.WithLabelValues(flowRegister, metrics.ResultFailure).Inc()
		return nil, ErrEmailAlreadyRegistered
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
		Password:  hash,
		Role:      entity.UserRoleRegular,
	}
	if s.config.AllowRoleOnRegister && input.Role != nil && input.Role.Valid() {
		user.Role = *input.Role
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	session, err := s.ledger.Open(ctx, user)
	if err != nil {
		return nil, err
	}
	result, err := s.ledger.IssueFull(session)
	if err != nil {
		return nil, err
	}

	metrics.AuthLoginsTotal.WithLabelValues(flowRegister, metrics.ResultSuccess).Inc()
	s.logSecurity(ctx, &user.ID, input.IPAddress, entity.LoginSuccess, map[string]any{"flow": flowRegister, "session_id": session.ID})
	return &result, nil
}

// Login checks the password and opens a session. Users with an MFA key get
// a pending session and an MFA token instead of a session token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = s.passwordHash.Verify(s.dummyHash, input.Password)
		metrics.AuthLoginsTotal.WithLabelValues(flowPassword, metrics.ResultFailure).Inc()
		s.logSecurity(ctx, nil, input.IPAddress, entity.LoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}
	if !s.passwordHash.Verify(user.Password, input.Password) {
		metrics.AuthLoginsTotal.WithLabelValues(flowPassword, metrics.ResultFailure).Inc()
		s.logSecurity(ctx, &user.ID, input.IPAddress, entity.LoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user, flowPassword, input.IPAddress)
}

// VerifyMFALogin completes a pending login. The session nonce is rotated on
// success, so the MFA token cannot be used again.
func (s *AuthService) VerifyMFALogin(ctx context.Context, input MFALoginInput) (*TokenResult, error) {
	if strings.TrimSpace(input.MFAToken) == "" {
		return nil, ErrInvalidMFAToken
	}

	claims, err := s.ledger.Decode(input.MFAToken)
	if err != nil {
		metrics.AuthLoginsTotal.WithLabelValues(flowMFA, metrics.ResultFailure).Inc()
		return nil, ErrInvalidMFAToken
	}
	session, err := s.ledger.ResolvePending(ctx, claims)
	if err != nil {
		return nil, err
	}
	if session == nil {
		metrics.AuthLoginsTotal.WithLabelValues(flowMFA, metrics.ResultFailure).Inc()
		return nil, ErrInvalidMFAToken
	}

	user := &session.User
	if user.MFAEnabled() && !s.mfaProvider.ValidateCode(*user.MfaKey, input.Code, s.now()) {
		metrics.AuthLoginsTotal.WithLabelValues(flowMFA, metrics.ResultFailure).Inc()
		s.logSecurity(ctx, &user.ID, input.IPAddress, entity.MFAFailed, map[string]any{"session_id": session.ID})
		return nil, ErrInvalidMFACode
	}

	if err := s.ledger.Activate(ctx, session); err != nil {
		if errors.Is(err, ErrSessionAlreadyActive) {
			metrics.AuthLoginsTotal.WithLabelValues(flowMFA, metrics.ResultFailure).Inc()
			return nil, ErrInvalidMFAToken
		}
		return nil, err
	}

	result, err := s.ledger.IssueFull(session)
	if err != nil {
		return nil, err
	}
	metrics.AuthLoginsTotal.WithLabelValues(flowMFA, metrics.ResultSuccess).Inc()
	s.logSecurity(ctx, &user.ID, input.IPAddress, entity.LoginSuccess, map[string]any{"flow": flowMFA, "session_id": session.ID})
	return &result, nil
}

// LoginWithIdentityToken signs in with a Google ID token. The user is found
// by the linked subject, then by email, and created when neither matches.
func (s *AuthService) LoginWithIdentityToken(ctx context.Context, input IdentityLoginInput) (*LoginResult, error) {
	if s.identities == nil {
		return nil, ErrIdentityNotConfigured
	}
	if strings.TrimSpace(input.IDToken) == "" {
		return nil, ErrInvalidIdentity
	}

	identity, err := s.identities.Verify(ctx, input.IDToken)
	if err != nil {
		metrics.AuthLoginsTotal.WithLabelValues(flowIdentity, metrics.ResultFailure).Inc()
		if errors.Is(err, idp.ErrNotConfigured) {
			return nil, ErrIdentityNotConfigured
		}
		s.logger.WithError(err).Debug("identity token rejected")
		return nil, ErrInvalidIdentity
	}

	user, err := s.userForIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user, flowIdentity, input.IPAddress)
}

func (s *AuthService) Logout(ctx context.Context, session *entity.Session, ipAddress *string) error {
	if err := s.ledger.Destroy(ctx, session); err != nil {
		return err
	}
	s.logSecurity(ctx, &session.UserID, ipAddress, entity.Logout, map[string]any{"session_id": session.ID})
	return nil
}

// Authenticate resolves a full session token to its session, with the user
// preloaded.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*entity.Session, error) {
	session, err := s.ledger.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidSession
	}
	return session, nil
}

func (s *AuthService) startSession(ctx context.Context, user *entity.User, flow string, ipAddress *string) (*LoginResult, error) {
	session, err := s.ledger.Open(ctx, user)
	if err != nil {
		return nil, err
	}

	if !session.Active {
		result, err := s.ledger.IssueMFA(session)
		if err != nil {
			return nil, err
		}
		metrics.AuthLoginsTotal.WithLabelValues(flow, "mfa_required").Inc()
		s.logSecurity(ctx, &user.ID, ipAddress, entity.MFAChallenged, map[string]any{"flow": flow, "session_id": session.ID})
		return &LoginResult{TokenResult: result, MFARequired: true}, nil
	}

	result, err := s.ledger.IssueFull(session)
	if err != nil {
		return nil, err
	}
	metrics.AuthLoginsTotal.WithLabelValues(flow, metrics.ResultSuccess).Inc()
	s.logSecurity(ctx, &user.ID, ipAddress, entity.LoginSuccess, map[string]any{"flow": flow, "session_id": session.ID})
	return &LoginResult{TokenResult: result}, nil
}

func (s *AuthService) userForIdentity(ctx context.Context, identity *idp.Identity) (*entity.User, error) {
	link, err := s.externalAuths.FindByExternalID(ctx, entity.ExternalAuthGoogle, identity.Subject)
	if err != nil {
		return nil, err
	}
	if link != nil {
		return &link.User, nil
	}

	// Only a provider-verified address may claim or create an account.
	email := utils.NormalizeEmail(identity.Email)
	if email == "" || !identity.EmailVerified {
		return nil, ErrInvalidIdentity
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.createIdentityUser(ctx, identity, email)
		if err != nil {
			return nil, err
		}
	} else if existing, err := s.externalAuths.FindByUser(ctx, user.ID); err != nil {
		return nil, err
	} else if existing != nil {
		// The account is already bound to a different subject.
		return nil, ErrInvalidIdentity
	}

	link = &entity.ExternalAuth{
		ExternalID: identity.Subject,
		UserID:     user.ID,
		Type:       entity.ExternalAuthGoogle,
	}
	if err := s.externalAuths.Create(ctx, link); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) createIdentityUser(ctx context.Context, identity *idp.Identity, email string) (*entity.User, error) {
	// Nobody knows this password; the account signs in through the provider
	// until the owner sets one.
	random, err := utils.GenerateRandomToken(32)
	if err != nil {
		return nil, err
	}
	hash, err := s.passwordHash.Hash(random)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		FirstName: identity.GivenName,
		LastName:  identity.FamilyName,
		Email:     email,
		Password:  hash,
		Role:      entity.UserRoleRegular,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// logSecurity writes an audit row. Failures are logged, never returned.
func (s *AuthService) logSecurity(
	ctx context.Context,
	userID *int64,
	ipAddress *string,
	action entity.SecurityAction,
	metadata map[string]any,
) {
	if s.securityLogs == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			s.logger.WithError(err).WithField("action", action).Warn("encode security log metadata")
			return
		}
		payload = datatypes.JSON(bytes)
	}

	log := &entity.SecurityLog{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
	}
	if err := s.securityLogs.Log(ctx, log); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("write security log")
	}
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
