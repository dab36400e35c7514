// Package sandbox serves the backend API the storefront talks to, for local
// development and tests. Every response uses the {success, data, message,
// errors} envelope.
package sandbox

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type fieldError struct {
	Msg   string `json:"msg"`
	Param string `json:"param,omitempty"`
}

type envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`
}

func ok(c *fiber.Ctx, status int, data any, msg string) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data, Message: msg})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(envelope{Success: false, Message: msg})
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=100"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

type registerRequest struct {
	Email     string `json:"email" form:"email" validate:"required,email,max=100"`
	Password  string `json:"password" form:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"nombre" form:"nombre" validate:"required,max=40"`
	LastName  string `json:"apellido" form:"apellido" validate:"max=40"`
}

type profileRequest struct {
	FirstName string `json:"nombre" form:"nombre" validate:"required,max=40"`
	LastName  string `json:"apellido" form:"apellido" validate:"max=40"`
}

type session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type Handler struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Orders  *services.OrderService
}

// Mount registers the API under r (usually the /api group).
func (h *Handler) Mount(r fiber.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Put("/auth/profile", h.RequireBearer(), h.UpdateProfile)
	r.Get("/products", h.ListProducts)
	r.Get("/products/:id", h.GetProduct)
	r.Post("/orders", h.RequireBearer(), h.CreateOrder)
	r.Get("/orders", h.RequireBearer(), h.ListOrders)
}

// RequireBearer validates the Authorization header and stores the user id
// in Locals("user_id").
func (h *Handler) RequireBearer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fail(c, fiber.StatusUnauthorized, "Authorization header required")
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return fail(c, fiber.StatusUnauthorized, "Invalid authorization header format")
		}
		claims, err := h.Auth.ValidateToken(parts[1])
		if err != nil {
			applog.Security(c, "sandbox.token.reject", map[string]any{"err": err.Error()})
			return fail(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}
		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return invalid(c, err)
	}
	tok, u, err := h.Auth.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCreds) {
			applog.Security(c, "sandbox.login.fail", map[string]any{"email": req.Email})
			return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		applog.Error(c, "sandbox.login.error", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Login failed")
	}
	return ok(c, fiber.StatusOK, session{Token: tok, User: u}, "")
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return invalid(c, err)
	}
	tok, u, err := h.Auth.Register(req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return fail(c, fiber.StatusConflict, "Email already registered")
		}
		applog.Error(c, "sandbox.register.error", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Registration failed")
	}
	applog.Audit(c, "sandbox.register", map[string]any{"user_id": u.ID})
	return ok(c, fiber.StatusCreated, session{Token: tok, User: u}, "User registered")
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return invalid(c, err)
	}
	u, err := h.Auth.UpdateProfile(userID(c), req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, services.ErrUnknownUser) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		applog.Error(c, "sandbox.profile.error", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not update profile")
	}
	return ok(c, fiber.StatusOK, u, "")
}

func (h *Handler) ListProducts(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("limit", "50"))
	ps, err := h.Catalog.ListProducts(page, size)
	if err != nil {
		applog.Error(c, "sandbox.products.error", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not list products")
	}
	return ok(c, fiber.StatusOK, ps, "")
}

func (h *Handler) GetProduct(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return fail(c, fiber.StatusNotFound, "Product not found")
	}
	p, err := h.Catalog.GetProduct(id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, "Product not found")
		}
		applog.Error(c, "sandbox.product.error", err, map[string]any{"product_id": id})
		return fail(c, fiber.StatusInternalServerError, "Could not load product")
	}
	return ok(c, fiber.StatusOK, p, "")
}

// CreateOrder stores the submission as sent.
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	var sub domain.OrderSubmission
	if err := c.BodyParser(&sub); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	r, err := h.Orders.Record(userID(c), sub)
	if err != nil {
		applog.Error(c, "sandbox.order.error", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not create order")
	}
	applog.Audit(c, "sandbox.order.create", map[string]any{"order_id": r.ID, "total": r.Total, "lines": len(r.Products)})
	return ok(c, fiber.StatusCreated, r, "Order created")
}

func (h *Handler) ListOrders(c *fiber.Ctx) error {
	list, err := h.Orders.ListForUser(userID(c))
	if err != nil {
		applog.Error(c, "sandbox.orders.error", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not list orders")
	}
	return ok(c, fiber.StatusOK, list, "")
}

func invalid(c *fiber.Ctx, err error) error {
	fields := validate.Fields(err)
	errs := make([]fieldError, 0, len(fields))
	for _, f := range fields {
		errs = append(errs, fieldError{Msg: f.Msg, Param: f.Field})
	}
	if len(errs) == 0 {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	return c.Status(fiber.StatusBadRequest).JSON(envelope{Success: false, Errors: errs})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
