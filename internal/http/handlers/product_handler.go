package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/api"
	"storefront/internal/log"
	"storefront/internal/validate"
)

type CatalogHandler struct {
	API Backend
}

func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	products, err := h.API.Products(c.UserContext())
	if err != nil {
		log.Error(c, "catalog.list.fail", err, nil)
		return render(c, "home", fiber.Map{"Err": "Could not load products. Please try again."})
	}
	return render(c, "home", fiber.Map{"Products": products})
}

func (h *CatalogHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	p, err := h.API.Product(c.UserContext(), id)
	if err != nil {
		if api.IsStatus(err, fiber.StatusNotFound) {
			return notFound(c, "This item is no longer available")
		}
		log.Error(c, "catalog.detail.fail", err, map[string]any{"product_id": id})
		return render(c.Status(fiber.StatusBadGateway), "notfound", fiber.Map{"Message": "Could not load this product"})
	}
	return render(c, "product", fiber.Map{"P": p})
}
