// Package auth resolves the acting reviewer from HS256 bearer tokens.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the calling actor. ActorID wins over Subject.
type Claims struct {
	ActorID string `json:"actor_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() string {
	if c.ActorID != "" {
		return c.ActorID
	}
	return c.Subject
}

// SignActorToken issues a token for actorID valid for ttl.
func SignActorToken(secret, actorID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ActorID: actorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseActorToken verifies tok and returns the actor id it carries.
func ParseActorToken(secret, tok string) (string, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Actor() == "" {
		return "", ErrInvalidToken
	}
	return c.Actor(), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
