package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"reward-ledger/logger"
)

// GatewayAuthMiddleware validates the bearer token the gateway attaches to
// every forwarded request.
func GatewayAuthMiddleware(expectedToken string, log *logger.Logger) fiber.Handler {
	if expectedToken == "" {
		log.Fatal("gateway token is empty, service cannot authenticate the gateway")
	}
	expected := []byte(expectedToken)

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Warn("missing authorization header", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"reason":  "gateway_token_missing",
			})
		}

		// The gateway may send the raw token without the Bearer prefix.
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			log.Warn("invalid gateway token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"reason":  "gateway_token_invalid",
			})
		}
		return c.Next()
	}
}
