package service

import (
	"context"
	"fmt"
	"time"

	"kkp/internal/entity"
	"kkp/internal/metrics"
	"kkp/internal/repository"
	"kkp/internal/token"
	"kkp/internal/utils"
)

const (
	claimUser    = "u"
	claimSession = "s"
	claimNonce   = "n"

	fullNonceLength    = 2 * utils.NonceBytes
	pendingNonceLength = 8
)

// SessionClaims is the payload of both session token shapes. A full token
// carries the whole nonce; an MFA token carries only its first 8 characters.
type SessionClaims struct {
	UserID    int64
	SessionID int64
	Nonce     string
}

func (c SessionClaims) claims() token.Claims {
	return token.Claims{
		claimUser:    c.UserID,
		claimSession: c.SessionID,
		claimNonce:   c.Nonce,
	}
}

func sessionClaimsFrom(claims token.Claims) (SessionClaims, bool) {
	userID, okUser := claims.GetInt64(claimUser)
	sessionID, okSession := claims.GetInt64(claimSession)
	nonce, okNonce := claims.GetString(claimNonce)
	if !okUser || !okSession || !okNonce {
		return SessionClaims{}, false
	}
	return SessionClaims{UserID: userID, SessionID: sessionID, Nonce: nonce}, true
}

// SessionLedger binds tokens to session rows. The nonce stored on the row is
// the only revocation handle: rotating or deleting it invalidates every token
// minted against the old value.
type SessionLedger struct {
	sessions repository.SessionRepository
	secret   []byte
	ttl      time.Duration
	clock    Clock
}

func NewSessionLedger(sessions repository.SessionRepository, secret []byte, ttl time.Duration, clock Clock) *SessionLedger {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &SessionLedger{sessions: sessions, secret: secret, ttl: ttl, clock: clock}
}

// Open creates a session for user. It starts inactive when the user has an
// MFA key.
func (l *SessionLedger) Open(ctx context.Context, user *entity.User) (*entity.Session, error) {
	nonce, err := utils.GenerateNonce()
	if err != nil {
		return nil, err
	}
	session := &entity.Session{
		UserID: user.ID,
		Nonce:  nonce,
		Active: !user.MFAEnabled(),
	}
	if err := l.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.User = *user
	return session, nil
}

// IssueFull mints a session token against the current nonce.
func (l *SessionLedger) IssueFull(session *entity.Session) (TokenResult, error) {
	if !session.Active {
		return TokenResult{}, ErrInvalidSession
	}
	return l.issue(session.UserID, session.ID, session.Nonce, l.ttl, "session")
}

// IssueMFA mints the short-lived MFA token for a pending session.
func (l *SessionLedger) IssueMFA(session *entity.Session) (TokenResult, error) {
	if session.Active || len(session.Nonce) < pendingNonceLength {
		return TokenResult{}, ErrInvalidSession
	}
	return l.issue(session.UserID, session.ID, session.Nonce[:pendingNonceLength], MFATokenTTL, "mfa")
}

func (l *SessionLedger) issue(userID, sessionID int64, nonce string, ttl time.Duration, kind string) (TokenResult, error) {
	expiresAt := l.clock.Now().Add(ttl)
	claims := SessionClaims{UserID: userID, SessionID: sessionID, Nonce: nonce}
	raw, err := token.Encode(claims.claims(), l.secret, expiresAt)
	if err != nil {
		return TokenResult{}, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(kind).Inc()
	return TokenResult{Token: raw, ExpiresAt: time.Unix(expiresAt.Unix(), 0)}, nil
}

// Decode verifies a session or MFA token and extracts its claims.
func (l *SessionLedger) Decode(raw string) (SessionClaims, error) {
	claims, err := token.DecodeAt(raw, l.clock.Now(), token.HMAC(l.secret))
	if err != nil {
		return SessionClaims{}, err
	}
	parsed, ok := sessionClaimsFrom(claims)
	if !ok {
		return SessionClaims{}, token.ErrMalformed
	}
	return parsed, nil
}

// ResolveFull returns the active session matching claims exactly, or nil.
func (l *SessionLedger) ResolveFull(ctx context.Context, claims SessionClaims) (*entity.Session, error) {
	if len(claims.Nonce) != fullNonceLength {
		return nil, nil
	}
	return l.sessions.FindActive(ctx, claims.SessionID, claims.UserID, claims.Nonce)
}

// ResolvePending returns the inactive session whose nonce starts with the
// claimed prefix, or nil.
func (l *SessionLedger) ResolvePending(ctx context.Context, claims SessionClaims) (*entity.Session, error) {
	if len(claims.Nonce) != pendingNonceLength || !utils.IsLowerHex(claims.Nonce) {
		return nil, nil
	}
	return l.sessions.FindPending(ctx, claims.SessionID, claims.UserID, claims.Nonce)
}

// Authenticate resolves a full session token. Any token or lookup miss
// yields nil; only storage failures are errors.
func (l *SessionLedger) Authenticate(ctx context.Context, raw string) (*entity.Session, error) {
	claims, err := l.Decode(raw)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, nil
	}
	session, err := l.ResolveFull(ctx, claims)
	if err != nil {
		return nil, err
	}
	if session == nil {
		metrics.TokenVerificationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, nil
	}
	metrics.TokenVerificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return session, nil
}

// Activate rotates the nonce and flips the session active. At most one
// caller wins for a given pending session; the rest get
// ErrSessionAlreadyActive.
func (l *SessionLedger) Activate(ctx context.Context, session *entity.Session) error {
	nonce, err := utils.GenerateNonce()
	if err != nil {
		return err
	}
	ok, err := l.sessions.Activate(ctx, session.ID, nonce)
	if err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	if !ok {
		return ErrSessionAlreadyActive
	}
	session.Nonce = nonce
	session.Active = true
	return nil
}

func (l *SessionLedger) Destroy(ctx context.Context, session *entity.Session) error {
	return l.sessions.Delete(ctx, session.ID)
}

func (l *SessionLedger) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	return l.sessions.DeleteAllByUser(ctx, userID)
}

func (l *SessionLedger) RegisterDevice(ctx context.Context, session *entity.Session, fcmToken string) error {
	if fcmToken == "" {
		return ErrInvalidInput
	}
	now := l.clock.Now().Unix()
	if err := l.sessions.UpdateDevice(ctx, session.ID, &fcmToken, now); err != nil {
		return err
	}
	session.FcmToken = &fcmToken
	session.FcmTokenTime = now
	return nil
}

func (l *SessionLedger) UnregisterDevice(ctx context.Context, session *entity.Session) error {
	if err := l.sessions.UpdateDevice(ctx, session.ID, nil, 0); err != nil {
		return err
	}
	session.FcmToken = nil
	session.FcmTokenTime = 0
	return nil
}

func (l *SessionLedger) UpdateLocation(ctx context.Context, session *entity.Session, lon, lat float64) error {
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return ErrInvalidInput
	}
	now := l.clock.Now().UTC()
	if err := l.sessions.UpdateLocation(ctx, session.ID, lon, lat, now); err != nil {
		return err
	}
	session.LocationLon = &lon
	session.LocationLat = &lat
	session.LocationTime = &now
	return nil
}
