package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned for credentials that are not JWTs or carry no expiry.
var ErrOpaqueToken = errors.New("token carries no readable expiry")

// TokenExpiry reads the exp claim of a backend-issued JWT without verifying
// its signature. The gateway does not hold the signing key; the backend
// stays the authority and this is only used to retire stale sessions early.
func TokenExpiry(tokenString string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, errors.Join(ErrOpaqueToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrOpaqueToken
	}
	return claims.ExpiresAt.Time, nil
}

// TokenExpired reports whether tokenString is a JWT whose expiry is at or
// before now. Opaque tokens never expire from the gateway's point of view.
func TokenExpired(tokenString string, now time.Time) bool {
	exp, err := TokenExpiry(tokenString)
	if err != nil {
		return false
	}
	return !now.Before(exp)
}
