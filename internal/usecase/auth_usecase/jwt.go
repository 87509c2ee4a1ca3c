package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// access tokenが不正・期限切れ
var ErrInvalidAccessToken = errors.New("invalid access token")

// access tokenに入れるclaims
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// HS256で署名・検証する
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

func (j *JWTIssuer) Issue(userID string, email string, now time.Time) (string, time.Time, error) {
	exp := now.Add(j.ttl)

	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// 署名・期限・subを確認してclaimsを返す
func (j *JWTIssuer) Verify(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
