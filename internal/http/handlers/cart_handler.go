package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/api"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/validate"
)

type CartHandler struct {
	API Backend
}

// Add looks the product up on the backend so price and name never come
// from the form, then adds it qty times.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	id, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return c.Status(fiber.StatusBadRequest).SendString("missing productId")
	}
	qty := validate.Qty(c.FormValue("qty"))

	p, err := h.API.Product(c.UserContext(), id)
	if err != nil {
		if api.IsStatus(err, fiber.StatusNotFound) {
			return notFound(c, "This item is no longer available")
		}
		applog.Error(c, "cart.add.lookup", err, map[string]any{"product_id": id})
		return render(c.Status(fiber.StatusBadGateway), "notfound", fiber.Map{"Message": "Could not add this item. Please try again."})
	}
	v := visitorFrom(c)
	for i := 0; i < qty; i++ {
		v.Cart.AddItem(p)
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": id, "qty": qty})
	return c.RedirectBack("/")
}

// Increment adds one more of a product already in the cart.
func (h *CartHandler) Increment(c *fiber.Ctx) error {
	v := visitorFrom(c)
	if p := lineProduct(v.Cart.Lines(), c.Params("id")); p != nil {
		v.Cart.AddItem(p)
	}
	return c.RedirectBack("/")
}

func (h *CartHandler) Decrement(c *fiber.Ctx) error {
	visitorFrom(c).Cart.RemoveItem(c.Params("id"))
	return c.RedirectBack("/")
}

func (h *CartHandler) Delete(c *fiber.Ctx) error {
	visitorFrom(c).Cart.DeleteItem(c.Params("id"))
	return c.RedirectBack("/")
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	visitorFrom(c).Cart.ClearCart()
	applog.Info(c, "cart.clear", nil)
	return c.RedirectBack("/")
}

func (h *CartHandler) Open(c *fiber.Ctx) error {
	visitorFrom(c).Checkout.Open()
	return c.RedirectBack("/")
}

func (h *CartHandler) Close(c *fiber.Ctx) error {
	visitorFrom(c).Checkout.Close()
	return c.RedirectBack("/")
}

func (h *CartHandler) Toggle(c *fiber.Ctx) error {
	visitorFrom(c).Checkout.Toggle()
	return c.RedirectBack("/")
}

type cartLineJSON struct {
	Product  *domain.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal float64         `json:"subtotal"`
}

type checkoutJSON struct {
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
	Notice  string `json:"notice,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// JSON serves the drawer state for scripts: GET /api/cart.
func (h *CartHandler) JSON(c *fiber.Ctx) error {
	v := visitorFrom(c)
	snap := v.Cart.Snapshot()
	view := v.Checkout.View()

	items := make([]cartLineJSON, 0, len(snap.Items))
	for _, l := range snap.Items {
		items = append(items, cartLineJSON{Product: l.Product, Quantity: l.Quantity, Subtotal: l.Subtotal()})
	}
	co := checkoutJSON{State: view.State.String(), Error: view.Error, Notice: view.Notice}
	if view.Receipt != nil {
		co.OrderID = view.Receipt.ID
	}
	return c.JSON(fiber.Map{
		"items":      items,
		"isOpen":     snap.IsOpen,
		"total":      snap.Total,
		"totalItems": snap.TotalItems,
		"checkout":   co,
	})
}

func lineProduct(lines []domain.CartLine, id string) *domain.Product {
	for _, l := range lines {
		if l.Valid() && l.Product.ID == id {
			return l.Product
		}
	}
	return nil
}
