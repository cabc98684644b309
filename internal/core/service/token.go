package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

// Claims carried by session tokens. Role drives UI gating only.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Source   string `json:"source,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 session tokens for authenticated identities.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for user and its expiry.
func (t *TokenIssuer) Issue(user *domain.Identity, source domain.CredentialSource) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("issue token: nil identity")
	}
	now := time.Now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		Source:   string(source),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    domain.TokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
