package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
)

// RequireUser lets signed-in users through and sends everyone else to the
// login page. It must run after the Session middleware.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a := authFrom(c)
		if a == nil || !a.IsAuthenticated() {
			applog.Security(c, "access.denied.anonymous", nil)
			return c.Redirect("/login")
		}
		return c.Next()
	}
}
