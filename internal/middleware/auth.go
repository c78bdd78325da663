// Package middleware provides HTTP middleware for the API server:
// authentication, request logging, panic recovery and CORS.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// Context keys for authentication data.
type contextKey string

const (
	// ContextKeyUser is the context key for the authenticated user.
	ContextKeyUser contextKey = "auth_user"

	// ContextKeyToken is the context key for the presented session token.
	ContextKeyToken contextKey = "auth_token"
)

// Auth errors.
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenRevoked      = errors.New("token revoked")
)

// TokenParser verifies a token signature and expiry and returns the subject
// user ID.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

// UserLoader loads a user by ID for session validation.
type UserLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Logger is the structured logger for auth events.
	Logger *slog.Logger

	// TokenParser verifies bearer tokens.
	TokenParser TokenParser

	// UserLoader loads the token's subject. The token must still be present
	// in the user's active session set, otherwise it counts as revoked.
	UserLoader UserLoader
}

// Auth returns an authentication middleware with the given configuration.
//
// A request passes only if it carries a well formed bearer token whose
// signature verifies, whose subject exists, and whose exact token string is
// still in that user's session set. Every failure mode collapses to the same
// 401 response so callers learn nothing about which check failed.
func Auth(config AuthConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := extractBearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return respondAuthError(c)
			}

			userID, err := config.TokenParser.Parse(token)
			if err != nil {
				config.Logger.Warn("token validation failed",
					slog.String("error", err.Error()),
					slog.String("path", c.Request().URL.Path),
					slog.String("remote_ip", c.RealIP()),
				)
				return respondAuthError(c)
			}

			u, err := config.UserLoader.FindByID(c.Request().Context(), userID)
			if err != nil {
				config.Logger.Warn("token subject not found",
					slog.String("user_id", userID.String()),
					slog.String("remote_ip", c.RealIP()),
				)
				return respondAuthError(c)
			}

			if !u.HasToken(token) {
				config.Logger.Warn("revoked token presented",
					slog.String("user_id", userID.String()),
					slog.String("remote_ip", c.RealIP()),
				)
				return respondAuthError(c)
			}

			c.Set(string(ContextKeyUser), u)
			c.Set(string(ContextKeyToken), token)

			return next(c)
		}
	}
}

// extractBearerToken extracts the token from a Bearer authorization header.
func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrInvalidAuthHeader
	}

	return token, nil
}

// respondAuthError sends the uniform authentication error response.
func respondAuthError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": "Please authenticate",
		},
	})
}

// GetUser extracts the authenticated user from the echo context.
func GetUser(c echo.Context) *user.User {
	if u, ok := c.Get(string(ContextKeyUser)).(*user.User); ok {
		return u
	}
	return nil
}

// GetUserID extracts the authenticated user's ID from the echo context.
func GetUserID(c echo.Context) uuid.UUID {
	if u := GetUser(c); u != nil {
		return u.ID()
	}
	return uuid.UUID("")
}

// GetToken extracts the presented session token from the echo context.
func GetToken(c echo.Context) string {
	if token, ok := c.Get(string(ContextKeyToken)).(string); ok {
		return token
	}
	return ""
}
