package handlers

import (
	"context"

	"storefront/internal/api"
	"storefront/internal/appstate"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/domain"
)

// Backend is the part of the API client the storefront pages use.
type Backend interface {
	checkout.OrderCreator
	ListOrders(ctx context.Context, token string) ([]domain.OrderReceipt, error)
	Login(ctx context.Context, creds api.Credentials) (*api.Session, error)
	Register(ctx context.Context, reg api.Registration) (*api.Session, error)
	UpdateProfile(ctx context.Context, token string, p api.Profile) (*domain.User, error)
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id string) (*domain.Product, error)
}

type Deps struct {
	Session         *Session
	AuthHandler     *AuthHandler
	CatalogHandler  *CatalogHandler
	CartHandler     *CartHandler
	CheckoutHandler *CheckoutHandler
	AccountHandler  *AccountHandler
	OrderHandler    *OrderHandler
}

func NewDeps(state *appstate.State, backend Backend, cfg config.Config) *Deps {
	return &Deps{
		Session:         &Session{State: state, CookieSecure: cfg.CookieSecure},
		AuthHandler:     &AuthHandler{API: backend},
		CatalogHandler:  &CatalogHandler{API: backend},
		CartHandler:     &CartHandler{API: backend},
		CheckoutHandler: &CheckoutHandler{},
		AccountHandler:  &AccountHandler{API: backend},
		OrderHandler:    &OrderHandler{API: backend},
	}
}
