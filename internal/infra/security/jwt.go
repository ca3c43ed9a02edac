package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMalformed indicates the bearer token could not be parsed or its
	// signature did not verify.
	ErrTokenMalformed = errors.New("bearer token malformed")
	// ErrTokenExpired indicates the bearer token is outside its validity window.
	ErrTokenExpired = errors.New("bearer token expired")
	// ErrTokenMissingIdentity indicates the token verified but carries no
	// usable account identity.
	ErrTokenMissingIdentity = errors.New("bearer token missing identity claims")
)

// AccessClaims is the claim set minted into bearer tokens.
type AccessClaims struct {
	AccountID string `json:"uid"`
	Nickname  string `json:"nick"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HMAC-signed bearer tokens with a fixed
// validity window.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer builds a TokenIssuer. The secret must be non-empty; the ttl
// bounds every minted token.
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token issuer: empty signing secret")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token issuer: non-positive ttl %v", ttl)
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock overrides the issuer clock. Intended for tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// TTL reports the validity window applied to minted tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Mint signs a bearer token for the given account identity.
func (t *TokenIssuer) Mint(accountID, nickname string) (string, error) {
	issuedAt := t.now()
	claims := AccessClaims{
		AccountID: accountID,
		Nickname:  nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token signature and validity window and returns the
// embedded claims.
func (t *TokenIssuer) Parse(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	if claims.AccountID == "" {
		return nil, ErrTokenMissingIdentity
	}
	return claims, nil
}
