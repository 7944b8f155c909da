package httpapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	sessionCookieName   = "session_id"
	sessionCookieMaxAge = 30 * 24 * time.Hour
)

// SessionMiddleware ensures every request carries an anonymous session id: it
// reads the session cookie, generates an id when missing, exposes it to the
// handlers, and sets the cookie on the response only when it was absent.
func SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(sessionCookieName)
		fresh := sid == ""
		if fresh {
			sid = newSessionID()
		}
		c.Locals(sessionCookieName, sid)

		err := c.Next()

		if fresh {
			c.Cookie(&fiber.Cookie{
				Name:     sessionCookieName,
				Value:    sid,
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				SameSite: "Lax",
			})
		}
		return err
	}
}

// newSessionID returns a 32-character hex id.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// sessionID returns the request's session id set by SessionMiddleware.
func sessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionCookieName).(string)
	return sid
}
