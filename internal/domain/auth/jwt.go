// Package auth verifies bearer tokens issued by the external auth service.
// The engine never issues tokens or stores credentials; it only checks the
// signature and expiry, and extracts the actor for movement attribution.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/core/context"
)

// JWTConfig holds token verification configuration.
type JWTConfig struct {
	Secret string
	Issuer string
	Leeway time.Duration
}

// DefaultJWTConfig returns default verification configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret: secret,
		Issuer: "inventory-core",
		Leeway: 30 * time.Second,
	}
}

// Claims represents the JWT claims the engine cares about.
type Claims struct {
	jwt.RegisteredClaims
	ActorID string   `json:"uid"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles,omitempty"`
}

// Verifier validates bearer tokens.
type Verifier struct {
	config JWTConfig
}

// NewVerifier creates a token verifier.
func NewVerifier(config JWTConfig) *Verifier {
	return &Verifier{config: config}
}

// ValidateToken validates the token and returns the actor context.
func (v *Verifier) ValidateToken(tokenString string) (*appctx.ActorContext, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(v.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	actorID := claims.ActorID
	if actorID == "" {
		actorID = claims.Subject
	}

	return &appctx.ActorContext{
		ActorID: actorID,
		Email:   claims.Email,
		Roles:   claims.Roles,
	}, nil
}
