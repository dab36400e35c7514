package api

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/domain"
)

// Session is the data payload of a successful login or registration.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
}

type Profile struct {
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
}

type orderRequest struct {
	Products []domain.OrderLine `json:"productos"`
	Total    float64            `json:"total"`
}

// CreateOrder posts the submission as {productos, total}.
func (c *Client) CreateOrder(ctx context.Context, token string, sub domain.OrderSubmission) (*domain.OrderReceipt, error) {
	var receipt domain.OrderReceipt
	body := orderRequest{Products: sub.Products, Total: sub.Total}
	if body.Products == nil {
		body.Products = []domain.OrderLine{}
	}
	if err := c.do(ctx, http.MethodPost, "/orders", token, body, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) ListOrders(ctx context.Context, token string) ([]domain.OrderReceipt, error) {
	var orders []domain.OrderReceipt
	if err := c.do(ctx, http.MethodGet, "/orders", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", reg, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateProfile changes the signed-in user's names and returns the stored user.
func (c *Client) UpdateProfile(ctx context.Context, token string, p Profile) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPut, "/auth/profile", token, p, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.do(ctx, http.MethodGet, "/products", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Product fetches one product. Concurrent lookups of the same id share a
// single request.
func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	v, err, _ := c.products.Do(id, func() (any, error) {
		var p domain.Product
		if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), "", nil, &p); err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.Product)
	return &p, nil
}
