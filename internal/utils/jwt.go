// Package utils provides helpers for minting organizer tokens.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs an HS256 JWT for an organizer.  sub is the
// organizer's wallet address and name its display name; both end up in
// the request context through middleware.JWTAuth.
func NewAccessToken(secret, address, name, role string, ttlMin int) (AccessToken, error) {
	if secret == "" || address == "" {
		return AccessToken{}, errors.New("secret and address are required")
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  address,
		"name": name,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
