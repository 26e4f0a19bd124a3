package middleware

import (
	"strings"

	"skycast/pkg/session"

	"github.com/gofiber/fiber/v2"
)

// SessionToken pulls the opaque token from the request. Both the Bearer
// header and X-Session-Token are accepted.
func SessionToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return auth[7:]
	}
	return c.Get("X-Session-Token")
}

// RequireSession rejects any request whose token does not match a live,
// unexpired session. There is no alternate way through: no partial matches,
// no header-presence shortcuts.
func RequireSession(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := store.Validate(SessionToken(c))
		if !ok {
			return c.Status(401).JSON(fiber.Map{"error": "authentication required"})
		}
		c.Locals("user_id", sess.UserID)
		c.Locals("username", sess.Username)
		c.Locals("token", sess.Token)
		return c.Next()
	}
}

// OptionalSession attaches identity when a valid token is present but never
// rejects. Used by endpoints that serve anonymous callers too.
func OptionalSession(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sess, ok := store.Validate(SessionToken(c)); ok {
			c.Locals("user_id", sess.UserID)
			c.Locals("username", sess.Username)
			c.Locals("token", sess.Token)
		}
		return c.Next()
	}
}
