package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates a token that is malformed or carries a bad signature.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token whose expiry claim has passed.
	ErrExpiredToken = errors.New("token expired")
)

// Claims carries the identity resolved from a verified token.
type Claims struct {
	UserID   int64
	IssuedAt time.Time
}

type tokenClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed identity tokens.
type TokenService interface {
	Issue(userID int64) (string, error)
	Verify(token string) (*Claims, error)
}

type hmacTokenService struct {
	signingKey []byte
	ttl        time.Duration
	timeFunc   func() time.Time
}

// NewTokenService builds an HS256 token service. A zero ttl issues tokens
// without an expiry claim; they stay valid until the secret rotates.
func NewTokenService(secret string, ttl time.Duration) (TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token signing secret is required")
	}
	return &hmacTokenService{
		signingKey: []byte(secret),
		ttl:        ttl,
		timeFunc:   time.Now,
	}, nil
}

func (s *hmacTokenService) Issue(userID int64) (string, error) {
	now := s.timeFunc()
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  fmt.Sprintf("%d", userID),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *hmacTokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&tokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.timeFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	resolved := &Claims{UserID: claims.UserID}
	if claims.IssuedAt != nil {
		resolved.IssuedAt = claims.IssuedAt.Time
	}
	return resolved, nil
}
