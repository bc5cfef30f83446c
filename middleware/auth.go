package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"reward-ledger/logger"
)

const (
	localUserID = "user_id"
	localRoles  = "user_roles"
)

// UserContextMiddleware extracts the identity and roles the gateway resolved
// for the caller. Requests without X-User-ID are rejected.
func UserContextMiddleware(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("X-User-ID missing on secured route", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"reason":  "missing_user_context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, strings.ToLower(r))
			}
		}

		c.Locals(localUserID, userID)
		c.Locals(localRoles, roles)
		return c.Next()
	}
}

// RequireRole rejects callers that do not carry role. It must run after
// UserContextMiddleware.
func RequireRole(role string) fiber.Handler {
	role = strings.ToLower(role)
	return func(c *fiber.Ctx) error {
		for _, r := range Roles(c) {
			if r == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"reason":  "unauthorized",
		})
	}
}

// UserID returns the caller id stored by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(localRoles).([]string)
	return roles
}
