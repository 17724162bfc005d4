package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vision-relay-go/internal/platform/errors"
)

const defaultTTL = 24 * time.Hour

// TokenClaims are the claims carried by API bearer tokens.
type TokenClaims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// AuthToken signs and verifies API client tokens with HS256.
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthToken builds a token helper using the provided secret.
func NewAuthToken(secretKey string) *AuthToken {
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       defaultTTL,
		now:       time.Now,
	}
}

// WithTTL allows customising the expiration duration.
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

// GenerateToken issues a token for clientID.
func (at *AuthToken) GenerateToken(clientID string) (string, error) {
	if err := at.ready("auth.generate"); err != nil {
		return "", err
	}
	if clientID == "" {
		return "", errors.New(errors.KindValidation, "auth.generate", "client id is required")
	}

	now := at.now()
	claims := TokenClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(at.secretKey)
	if err != nil {
		return "", errors.Wrap(errors.KindAuth, "auth.generate", "failed to sign token", err)
	}
	return signed, nil
}

// VerifyToken validates tokenString and returns the client id it was issued for.
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if err := at.ready("auth.verify"); err != nil {
		return "", err
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	}, jwt.WithTimeFunc(at.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.Wrap(errors.KindAuth, "auth.verify", "invalid token", err)
	}
	if !token.Valid || claims.ClientID == "" {
		return "", errors.New(errors.KindAuth, "auth.verify", "invalid token claims")
	}
	return claims.ClientID, nil
}

func (at *AuthToken) ready(op string) error {
	if at == nil {
		return errors.New(errors.KindAuth, op, "auth token is nil")
	}
	if len(at.secretKey) == 0 {
		return errors.New(errors.KindAuth, op, "auth token secret is empty")
	}
	return nil
}
