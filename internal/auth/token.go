package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID      uuid.UUID
	Email   string
	IsAdmin bool
}

// Claims is the access-token payload.
type Claims struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier turns a bearer token into a Principal.
type Verifier interface {
	Verify(token string) (Principal, error)
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewTokenManager(secret string, ttl, rememberTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:      []byte(secret),
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}
}

// TTL is the lifetime of a token issued with the given remember-me choice.
func (m *TokenManager) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return m.rememberTTL
	}
	return m.ttl
}

func (m *TokenManager) Issue(p Principal, rememberMe bool) (string, error) {
	now := m.now()
	claims := &Claims{
		ID:      p.ID.String(),
		Email:   p.Email,
		IsAdmin: p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL(rememberMe))),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Verify(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: id, Email: claims.Email, IsAdmin: claims.IsAdmin}, nil
}
