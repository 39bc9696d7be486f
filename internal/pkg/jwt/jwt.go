package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "distill-core"

var (
	secret = []byte("distill-secret-change-me")

	// ErrInvalidToken covers malformed, expired, and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// SetSecret configures the signing secret. Call once during startup,
// before any token is issued or verified.
func SetSecret(s string) {
	if s != "" {
		secret = []byte(s)
	}
}

// Claims carries the authenticated user ID inside the token.
type Claims struct {
	UserID string `json:"uid"`
	jwtlib.RegisteredClaims
}

// Sign issues an HS256 token for userID that expires after ttl.
func Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
}

// Parse verifies tokenStr and returns its claims.
func Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, keyFunc,
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(issuer),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func keyFunc(*jwtlib.Token) (interface{}, error) {
	return secret, nil
}
