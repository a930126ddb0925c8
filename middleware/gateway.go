// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware validates the shared service token sent by site clients,
// either as "Authorization: Bearer <token>", a raw Authorization value, or X-Service-Token.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Fatal("❌ SERVICE_TOKEN is not set, service cannot authenticate clients")
	}
	expected := []byte(expectedToken)

	return func(c *fiber.Ctx) error {
		token := c.Get(fiber.HeaderAuthorization)
		if token != "" {
			// no "Bearer " prefix means the raw token was sent
			token = strings.TrimPrefix(token, "Bearer ")
		} else {
			token = c.Get("X-Service-Token")
		}

		if token == "" {
			log.Printf("🚫 [GATEWAY_AUTH] Missing service token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
			})
		}

		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			log.Printf("❌ [GATEWAY_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}

		return c.Next()
	}
}
