package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/o1egl/paseto"
)

const (
	tokenIssuer = "modestblooming"
	tokenFooter = "modestblooming-session"

	// The standard iat claim only has second precision.
	issuedNanosClaim = "iat_ns"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is what a session token asserts about its bearer.
type Claims struct {
	UserID    string
	Role      string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenMaker issues and verifies PASETO v2 local session tokens.
type TokenMaker struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenMaker(key []byte, ttl time.Duration) (*TokenMaker, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("paseto key must be 32 bytes, got %d", len(key))
	}
	return &TokenMaker{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is how long issued tokens stay valid.
func (m *TokenMaker) TTL() time.Duration { return m.ttl }

func (m *TokenMaker) Issue(userID, role string) (string, Claims, error) {
	now := m.now()
	claims := Claims{
		UserID:    userID,
		Role:      role,
		JTI:       uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	jsonToken := paseto.JSONToken{
		Jti:        claims.JTI,
		Subject:    userID,
		Issuer:     tokenIssuer,
		IssuedAt:   now,
		NotBefore:  now,
		Expiration: claims.ExpiresAt,
	}
	jsonToken.Set("role", role)
	jsonToken.Set(issuedNanosClaim, strconv.FormatInt(now.UnixNano(), 10))

	token, err := paseto.NewV2().Encrypt(m.key, jsonToken, tokenFooter)
	if err != nil {
		return "", Claims{}, fmt.Errorf("TokenMaker.Issue: %w", err)
	}
	return token, claims, nil
}

func (m *TokenMaker) Verify(token string) (Claims, error) {
	var (
		jsonToken paseto.JSONToken
		footer    string
	)
	if err := paseto.NewV2().Decrypt(token, m.key, &jsonToken, &footer); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if footer != tokenFooter {
		return Claims{}, ErrInvalidToken
	}
	if err := jsonToken.Validate(paseto.IssuedBy(tokenIssuer), paseto.ValidAt(m.now())); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if jsonToken.Subject == "" || jsonToken.Jti == "" {
		return Claims{}, ErrInvalidToken
	}
	issuedAt := jsonToken.IssuedAt
	if ns, err := strconv.ParseInt(jsonToken.Get(issuedNanosClaim), 10, 64); err == nil {
		issuedAt = time.Unix(0, ns)
	}
	return Claims{
		UserID:    jsonToken.Subject,
		Role:      jsonToken.Get("role"),
		JTI:       jsonToken.Jti,
		IssuedAt:  issuedAt,
		ExpiresAt: jsonToken.Expiration,
	}, nil
}
