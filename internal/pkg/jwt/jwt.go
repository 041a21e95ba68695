package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims carries the optional caller identity issued by the auth
// collaborator. Tokens are HS256 with a shared secret; this service only
// verifies them, issuing happens elsewhere.
type Claims struct {
	UserID string `json:"user_id"`
	jwtlib.RegisteredClaims
}

func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	var claims Claims
	token, err := jwtlib.ParseWithClaims(tokenString, &claims,
		func(*jwtlib.Token) (interface{}, error) { return secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

// GenerateToken mints a caller token; used by tests and local setups where
// no external issuer exists.
func GenerateToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
}
