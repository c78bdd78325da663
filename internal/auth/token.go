// Package auth issues and validates the signed bearer tokens that make up a
// user's sessions. A token proves identity cryptographically; whether it is
// still an active session is decided by its membership in the user's
// persisted token set.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskhive/taskhive/internal/domain/errs"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// Token errors. Both wrap errs.ErrUnauthorized so the HTTP layer maps them
// to 401 without special cases.
var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	ErrTokenExpired = fmt.Errorf("%w: token expired", errs.ErrUnauthorized)
)

// DefaultLeeway is the clock skew tolerance applied when validating.
const DefaultLeeway = 30 * time.Second

// TokenIssuer creates and verifies HS256-signed session tokens bound to a
// user id.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret and
// token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		leeway: DefaultLeeway,
	}
}

// Issue produces a signed token carrying the user id as subject, with
// issuance and expiry times. Appending it to the user's active set is the
// caller's job.
func (i *TokenIssuer) Issue(userID uuid.UUID) (string, error) {
	if userID.IsZero() {
		return "", errs.ErrInvalidInput
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Parse verifies signature and expiry and returns the embedded user id.
// It does not consult the user's token set; that revocation check happens
// where the user document is available.
func (i *TokenIssuer) Parse(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(_ *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(i.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, parseErr := uuid.ParseUUID(claims.Subject)
	if parseErr != nil {
		return "", ErrInvalidToken
	}

	return userID, nil
}
