package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"storefront/internal/appstate"
	"storefront/internal/auth"
	applog "storefront/internal/log"
)

const (
	visitorCookie = "vid"
	sessionCookie = "sid"
	visitorMaxAge = 365 * 24 * time.Hour
)

// Session attaches the visitor's cart and the session's auth store to every
// request. The vid cookie is long-lived and keys the durable cart; sid is a
// browser-session cookie and keys the auth entries.
type Session struct {
	State        *appstate.State
	CookieSecure bool
	Now          func() time.Time
}

func (s *Session) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		vid := s.ensureVID(c)
		sid := s.ensureSID(c)
		c.Locals("vid", vid)
		c.Locals("sid", sid)

		v := s.State.Visitor(c.UserContext(), vid)
		a := s.State.Auth(c.UserContext(), sid)
		c.Locals("visitor", v)
		c.Locals("auth", a)

		if a.IsAuthenticated() && a.TokenExpired(s.now()) {
			a.Logout(c.UserContext())
			applog.Security(c, "auth.session.expired", nil)
		}
		if u := a.User(); u != nil {
			c.Locals("user", u)
		}
		return c.Next()
	}
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Session) ensureVID(c *fiber.Ctx) string {
	vid := c.Cookies(visitorCookie)
	if _, err := uuid.Parse(vid); err != nil {
		vid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     visitorCookie,
			Value:    vid,
			Path:     "/",
			Expires:  time.Now().Add(visitorMaxAge),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   s.CookieSecure,
		})
	}
	return vid
}

func (s *Session) ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sessionCookie)
	if _, err := uuid.Parse(sid); err != nil {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:        sessionCookie,
			Value:       sid,
			Path:        "/",
			HTTPOnly:    true,
			SameSite:    fiber.CookieSameSiteLaxMode,
			Secure:      s.CookieSecure,
			SessionOnly: true,
		})
	}
	return sid
}

func visitorFrom(c *fiber.Ctx) *appstate.Visitor {
	v, _ := c.Locals("visitor").(*appstate.Visitor)
	return v
}

func authFrom(c *fiber.Ctx) *auth.Store {
	a, _ := c.Locals("auth").(*auth.Store)
	return a
}
