package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finora/internal/uuid"
)

const tokenIssuer = "finora-api"

// ErrMissingSigningKey is returned when production runs without a secret.
var ErrMissingSigningKey = errors.New("token signing key is required in production")

// Claims are the verified contents of an access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

// TokenCodec issues and verifies HS256 access tokens.
type TokenCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenCodec builds a codec from the configured secret. Without a secret a
// random per-process key is generated, so tokens do not survive a restart;
// in production a missing secret is an error.
func NewTokenCodec(secret string, production bool, ttl time.Duration) (*TokenCodec, error) {
	key := []byte(secret)
	if secret == "" {
		if production {
			return nil, ErrMissingSigningKey
		}
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenCodec{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for the given subject.
func (c *TokenCodec) Issue(userID, email string) (string, error) {
	now := c.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies signature, algorithm, expiry and subject. Any failure
// yields ok=false; Decode never returns an error to the caller.
func (c *TokenCodec) Decode(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if !uuid.IsValid(claims.Subject) {
		return nil, false
	}
	return claims, true
}
