package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

// TokenVerifier resolves a bearer token to a local user id.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return errors.Unauthorized("Authorization header is required", nil)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return errors.Unauthorized("Invalid authorization format", nil)
		}

		uid, err := m.UserIDFromToken(c.Request().Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}

		c.Set("uid", uid)
		return next(c)
	}
}

// UserIDFromToken verifies token and maps every failure onto 401.
func (m *AuthMiddleware) UserIDFromToken(ctx context.Context, token string) (string, error) {
	uid, err := m.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, errors.CodeUnauthorized) {
			return "", err
		}
		logger.Debug("Auth: token rejected: %v", err)
		return "", errors.Unauthorized("Invalid or expired token", err)
	}
	return uid, nil
}
