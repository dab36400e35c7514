package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/api"
	applog "storefront/internal/log"
)

type OrderHandler struct {
	API Backend
}

// History lists the signed-in user's orders. A token the backend no longer
// accepts ends the session.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	a := authFrom(c)
	orders, err := h.API.ListOrders(c.UserContext(), a.Token())
	if api.IsStatus(err, fiber.StatusUnauthorized) {
		a.Logout(c.UserContext())
		applog.Security(c, "auth.token.rejected", nil)
		return c.Redirect("/login")
	}
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return render(c.Status(fiber.StatusBadGateway), "notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "orders", fiber.Map{"Orders": orders})
}
