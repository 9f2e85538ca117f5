// Package auth validates the platform's JWT access tokens. This service never
// issues tokens; it only checks the ones minted by the identity service so the
// admin endpoints can be role-gated.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sellforge/ratings-service/pkg/middleware"
)

// Claims is the token payload shared across the platform's services.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager validates HS256 access tokens signed with the shared secret.
type JWTManager struct {
	secret []byte
}

// NewJWTManager creates a validator for tokens signed with secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secret: []byte(secret)}
}

// Validate parses and verifies an access token. It satisfies
// middleware.TokenValidator via the Validator method.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return claims, nil
}

// Validator adapts the manager to the middleware's TokenValidator signature.
func (m *JWTManager) Validator() middleware.TokenValidator {
	return func(tokenString string) (*middleware.Claims, error) {
		claims, err := m.Validate(tokenString)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}
}

// SignToken mints a short-lived token. Production traffic carries tokens from
// the identity service; this exists for local development and tests.
func (m *JWTManager) SignToken(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "ratings-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
