package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/checkout"
	applog "storefront/internal/log"
)

type CheckoutHandler struct{}

// Start runs the checkout from the drawer. The result is shown in the drawer
// on the page the user came from; signed-out users, and users whose token the
// backend refused, go to the login page.
func (h *CheckoutHandler) Start(c *fiber.Ctx) error {
	v := visitorFrom(c)
	out := v.Checkout.Initiate(c.UserContext(), authFrom(c))
	applog.Info(c, "checkout.initiate", map[string]any{"outcome": out.String()})
	switch out {
	case checkout.OutcomeLoginRequired:
		return c.Redirect("/login")
	case checkout.OutcomeAuthRejected:
		authFrom(c).Logout(c.UserContext())
		applog.Security(c, "auth.token.rejected", map[string]any{"during": "checkout"})
		return c.Redirect("/login")
	}
	return c.RedirectBack("/")
}

func (h *CheckoutHandler) DismissError(c *fiber.Ctx) error {
	visitorFrom(c).Checkout.DismissError()
	return c.RedirectBack("/")
}
