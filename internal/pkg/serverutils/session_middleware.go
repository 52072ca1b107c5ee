package serverutils

import (
	"strings"

	"move-quote-be/pkg/intake/intakeerr"
	"move-quote-be/pkg/intake/session"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

const sessionLocal = "intake_session"

type SessionResolver interface {
	Get(token string) (*session.Session, error)
}

// SessionToken finds the session token of a request: header, bearer, query,
// form field, then JSON body.
func SessionToken(c *fiber.Ctx) string {
	if t := c.Get("X-Session-Token"); t != "" {
		return t
	}
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if t := c.Query("session_token"); t != "" {
		return t
	}
	if t := c.FormValue("session_token"); t != "" {
		return t
	}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var body struct {
			SessionToken string `json:"session_token"`
		}
		if sonic.Unmarshal(c.Body(), &body) == nil {
			return body.SessionToken
		}
	}
	return ""
}

// SessionMiddleware resolves the live intake session and stores it in the
// request locals. Unknown or expired tokens fail with InvalidSession.
func SessionMiddleware(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c)
		if token == "" {
			return intakeerr.ErrInvalidSession
		}
		s, err := sessions.Get(token)
		if err != nil {
			return err
		}
		c.Locals(sessionLocal, s)
		return c.Next()
	}
}

func SessionFrom(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionLocal).(*session.Session)
	return s
}
