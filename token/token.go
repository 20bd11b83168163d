// Package token issues and verifies the signed bearer tokens that carry
// request identity. Tokens are stateless: there is no revocation list,
// expiry is the only invalidation.
package token

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"murmur/apperr"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = time.Hour

type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
}

func NewService(secret []byte) *Service {
	return &Service{secret: secret}
}

// Issue signs a token for the given user, valid for exactly TokenTTL.
func (s *Service) Issue(userID uint) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Verify parses and validates a signed token string.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Auth("Token has expired")
		}
		return nil, apperr.Wrap(apperr.KindAuth, "Invalid token", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperr.Auth("Invalid token")
	}
	return claims, nil
}

// FromRequest extracts and verifies the bearer token on an inbound
// request. A missing or malformed Authorization header is a hard
// failure; protected operations have no anonymous fallback.
func (s *Service) FromRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperr.Auth("Authorization is not defined")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, apperr.Auth("Invalid token")
	}
	return s.Verify(parts[1])
}
