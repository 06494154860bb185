package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired means the session ran out; the caller must log in again.
	ErrTokenExpired = errors.New("session expired")
	// ErrTokenInvalid means the token is malformed or tampered with; the
	// caller must log in again. Never falls back to any identity.
	ErrTokenInvalid = errors.New("invalid session token")
)

// TokenManager issues and verifies the signed session tokens that bind a
// username to its account number for a limited time.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

type Claims struct {
	Username      string `json:"username"`
	AccountNumber string `json:"account_number"`
	jwt.RegisteredClaims
}

// Issue returns a signed token for the user and its expiry time.
func (tm *TokenManager) Issue(username, accountNumber string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(tm.ttl)
	claims := Claims{
		Username:      username,
		AccountNumber: accountNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Verify parses and checks a token. Expiry and tampering are reported as
// distinct errors, both of which mean "require re-authentication".
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if claims.AccountNumber == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
