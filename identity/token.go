package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 access tokens bound to a session.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns a token for s that expires with it.
func (s *Signer) Sign(sess Session, issuedAt time.Time) (string, error) {
	c := claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify checks the signature and expiry of a token and returns its user and session ids.
func (s *Signer) Verify(tokenString string) (userID, sessionID string, err error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid || c.Subject == "" || c.SessionID == "" {
		return "", "", errors.New("token expired or invalid")
	}
	return c.Subject, c.SessionID, nil
}
