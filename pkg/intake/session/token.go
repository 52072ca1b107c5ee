package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrBadToken = errors.New("malformed session token")

// Tokens issues and verifies the opaque session tokens handed to clients.
// A token only names a session; whether that session is still alive is the
// manager's call.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

func (t *Tokens) Issue(id uuid.UUID, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sid": id.String(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) Parse(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrBadToken
	}
	sid, _ := claims["sid"].(string)
	id, err := uuid.Parse(sid)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return id, nil
}
