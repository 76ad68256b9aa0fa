package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// CallbackAudience is the audience the voice agent signs finish callbacks for.
const CallbackAudience = "calls-callback"

var ErrInvalidToken = errors.New("invalid service token")

type Claims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// GenerateServiceToken signs a short-lived HS256 token for audience.
func GenerateServiceToken(secret, service, audience string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("service token secret is required")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    service,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	return token.SignedString([]byte(secret))
}

// ValidateServiceToken checks signature, expiry and audience.
func ValidateServiceToken(secret, tokenString, audience string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyAudience(audience, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	return claims, nil
}
