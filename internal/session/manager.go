package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"warbler/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "warbler"

// Manager issues and resolves session tokens. A token is an HS256 JWT whose
// jti names a server-side session, so ending the session revokes the token.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager returns a Manager signing with secret and keeping sessions for ttl.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start opens a session for userID and returns its signed token.
func (m *Manager) Start(ctx context.Context, userID uint) (string, error) {
	sid := uuid.NewString()
	if err := m.store.Save(ctx, sid, userID, m.ttl); err != nil {
		return "", err
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        sid,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		_ = m.store.Delete(ctx, sid)
		return "", fmt.Errorf("sign session token: %w", err)
	}

	observability.ActiveSessions.Inc()
	return token, nil
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.ID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

// Resolve returns the user id of the session named by token, or ErrNoSession.
func (m *Manager) Resolve(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, ErrNoSession
	}
	claims, err := m.parse(token)
	if err != nil {
		return 0, err
	}

	uid, err := m.store.Lookup(ctx, claims.ID)
	if err != nil {
		return 0, err
	}
	if strconv.FormatUint(uint64(uid), 10) != claims.Subject {
		return 0, ErrNoSession
	}
	return uid, nil
}

// End revokes the session named by token. Unknown or invalid tokens are ignored.
func (m *Manager) End(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, claims.ID); err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	observability.ActiveSessions.Dec()
	return nil
}

// EndAllForUser revokes every session of userID.
func (m *Manager) EndAllForUser(ctx context.Context, userID uint) error {
	return m.store.DeleteUser(ctx, userID)
}
