package provider

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// ParseIdentity verifies an access token (HS256, shared provider secret) and
// extracts the identity it was issued for.
func ParseIdentity(accessToken, secret string) (Identity, error) {
	token, err := jwt.ParseWithClaims(accessToken, &accessClaims{},
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("parsing access token: %w", err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok {
		return Identity{}, errors.New("unexpected access token claims")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("access token subject is not a UUID: %w", err)
	}
	if claims.Email == "" {
		return Identity{}, errors.New("access token has no email claim")
	}

	return Identity{ID: id, Email: claims.Email}, nil
}
