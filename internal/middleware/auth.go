// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the HTTP surface.
package middleware

import (
	"context"
	"strings"

	"ideon/internal/auth"
	"ideon/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocal is the fiber.Ctx locals key holding the authenticated user id.
const UserIDLocal = "userID"

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, err := tokens.Parse(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		setUser(c, userID)
		return c.Next()
	}
}

// OptionalAuth resolves the user behind a bearer token when one is present
// and valid. Anonymous requests pass through untouched.
func OptionalAuth(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c); ok {
			if userID, err := tokens.Parse(token); err == nil {
				setUser(c, userID)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocal).(string)
	return id
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setUser(c *fiber.Ctx, userID string) {
	c.Locals(UserIDLocal, userID)
	// sync to the user context for logging and downstream services
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}
