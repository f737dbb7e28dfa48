package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/apportal/apportal/internal/model"
)

// Token signing errors.
var (
	ErrMissingSecret = errors.New("token signing secret is not set")
	ErrInvalidToken  = errors.New("invalid bearer token")
)

// Claims is the payload embedded in a signed bearer token. It carries a
// snapshot of the user at issuance time and deliberately no expiry claim:
// a signature-valid token is not self-expiring, expiry lives only in the
// credential store and must be checked there on every use.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsActivated bool   `json:"isActivated"`
	Role        string `json:"role"`
}

// SignBearerToken produces an HS256-signed token for the user.
// Refuses to sign with an empty secret rather than produce a token anyone
// could forge.
func SignBearerToken(user *model.User, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		IsActivated: user.IsActivated,
		Role:        user.Role,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseBearerToken verifies the signature and returns the embedded claims.
// It checks the signature only; the caller must still validate the token
// against the credential store's expiry.
func ParseBearerToken(tokenString string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TokenCacheKey returns a SHA256-derived key for caching a validated
// token. This is for cache key derivation only, never for storage of the
// token itself.
func TokenCacheKey(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:16])
}
