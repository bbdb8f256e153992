// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/danielhkuo/forum-polls/models"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no subject")
)

// PrincipalUser is the principal type of a regular forum account.
const PrincipalUser = "user"

// GenerateID returns a new opaque row identifier.
func GenerateID() string {
	return uuid.NewString()
}

// Claims is the bearer token payload. Subject carries the user id.
type Claims struct {
	Type string `json:"type"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for p that expires after ttl.
func GenerateToken(secret string, p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Type: p.Type,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and returns the principal it names. Missing
// type and role claims default to a regular member.
func ParseToken(secret, tokenStr string) (models.Principal, error) {
	if tokenStr == "" {
		return models.Principal{}, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Principal{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return models.Principal{}, ErrMissingSubject
	}

	p := models.Principal{ID: claims.Subject, Type: claims.Type, Role: claims.Role}
	if p.Type == "" {
		p.Type = PrincipalUser
	}
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	return p, nil
}
