// Package session carries the identity a view acts on behalf of.
package session

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingUserID = errors.New("session: missing user id")
	ErrMissingToken  = errors.New("session: missing auth token")
)

// Session is the authenticated user a view operates for. The token is
// opaque and only ever forwarded to the remote store.
type Session struct {
	UserID string
	Token  string
}

// Validate checks both fields are present.
func (s Session) Validate() error {
	if s.UserID == "" {
		return ErrMissingUserID
	}
	if s.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// idTokenClaims are the claims Firebase puts in an ID token that identify
// the user.
type idTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// FromIDToken builds a Session from an ID token, reading the user id from
// its claims. The signature is not verified here; the remote store does that.
func FromIDToken(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrMissingToken
	}

	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("session: parse id token: %w", err)
	}

	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return Session{}, ErrMissingUserID
	}
	return Session{UserID: uid, Token: token}, nil
}

// Resolve returns a Session for the configured user id and token, falling
// back to the token's claims when no user id is given.
func Resolve(userID, token string) (Session, error) {
	if userID == "" {
		return FromIDToken(token)
	}
	s := Session{UserID: userID, Token: token}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}
