// Package auth issues and verifies the signed tokens that bind a client
// connection to one play session.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every token and required on verification.
const Issuer = "groupsolitaire"

var (
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("auth: invalid session token")
	// ErrNoSecret is returned by NewSigner for an empty secret.
	ErrNoSecret = errors.New("auth: signing secret is required")
)

// Claims identify the session a token grants access to.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	PlayerID  string `json:"pid,omitempty"`
}

// Session parses the session id claim.
func (c Claims) Session() (uuid.UUID, error) {
	return uuid.Parse(c.SessionID)
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// NewSigner returns a signer whose tokens expire after ttl.
func NewSigner(secret string, ttl time.Duration, opts ...Option) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive, got %s", ttl)
	}
	s := &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue returns a token for sessionID, owned by playerID (which may be empty).
func (s *Signer) Issue(sessionID uuid.UUID, playerID string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   playerID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		SessionID: sessionID.String(),
		PlayerID:  playerID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// Verify checks signature, issuer and expiry, and returns the claims.
func (s *Signer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if _, err := claims.Session(); err != nil {
		return Claims{}, fmt.Errorf("%w: bad sid claim: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
