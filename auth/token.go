package auth

import (
	"errors"
	"issuehub/apperr"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the subject email plus the registered expiry claims.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, expiration time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// Issue returns a signed token whose subject is email.
func (t *TokenIssuer) Issue(email string) (string, error) {
	now := t.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify returns the subject email of a valid token. Every failure, whether
// a bad signature, expiry or garbage input, yields apperr.ErrInvalidToken.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", apperr.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", apperr.ErrInvalidToken
	}
	return claims.Subject, nil
}

// IsInvalidToken reports whether err came from Verify rejecting a token.
func IsInvalidToken(err error) bool {
	return errors.Is(err, apperr.ErrInvalidToken)
}
