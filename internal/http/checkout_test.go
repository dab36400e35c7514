package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/api"
)

func TestCheckoutSignedOutRedirectsToLogin(t *testing.T) {
	backend := newFakeBackend()
	b := newBrowser(t, newStorefrontApp(t, backend))
	addToCart(b, "mate-001", "1")

	resp := b.post("/checkout", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Zero(t, backend.orderCount())

	cart := b.cartJSON()
	assert.False(t, cart.IsOpen, "drawer closes on the way to login")
	assert.Equal(t, 1, cart.TotalItems)
}

func TestCheckoutEmptyCartShowsNotice(t *testing.T) {
	backend := newFakeBackend()
	b := newBrowser(t, newStorefrontApp(t, backend))
	b.login()
	b.post("/cart/open", nil)

	b.post("/checkout", nil)
	assert.Zero(t, backend.orderCount())

	cart := b.cartJSON()
	assert.Equal(t, "idle", cart.Checkout.State)
	assert.Equal(t, "Your cart is empty", cart.Checkout.Notice)

	_, body := b.get("/")
	assert.Contains(t, body, `data-testid="checkout-notice"`)
}

func TestCheckoutSuccessClearsCart(t *testing.T) {
	backend := newFakeBackend()
	b := newBrowser(t, newStorefrontApp(t, backend))
	b.login()
	addToCart(b, "mate-001", "2")
	addToCart(b, "yerba-001", "1")

	resp := b.post("/checkout", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	require.Equal(t, 1, backend.orderCount())
	assert.Equal(t, "tok-ana", backend.orderTokens[0])
	sub := backend.orders[0]
	assert.Equal(t, 2*8500.0+4200.0, sub.Total)
	require.Len(t, sub.Products, 2)
	assert.Equal(t, "mate-001", sub.Products[0].ID)
	assert.Equal(t, 2, sub.Products[0].Quantity)

	cart := b.cartJSON()
	assert.Empty(t, cart.Items)
	assert.Equal(t, "success", cart.Checkout.State)
	assert.Equal(t, "order-1", cart.Checkout.OrderID)

	_, body := b.get("/")
	assert.Contains(t, body, "Thank you for your purchase!")
	assert.NotContains(t, body, `data-testid="cart-count"`)

	// Closing the drawer dismisses the result.
	b.post("/cart/close", nil)
	assert.Equal(t, "idle", b.cartJSON().Checkout.State)
}

func TestCheckoutFailureKeepsCartAndShowsMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.orderErr = &api.Error{Status: http.StatusConflict, Message: "Insufficient stock"}
	b := newBrowser(t, newStorefrontApp(t, backend))
	b.login()
	addToCart(b, "mate-001", "3")

	b.post("/checkout", nil)

	cart := b.cartJSON()
	assert.Equal(t, "failed", cart.Checkout.State)
	assert.Equal(t, "Insufficient stock", cart.Checkout.Error)
	assert.Equal(t, 3, cart.TotalItems, "failed checkout keeps the cart")

	_, body := b.get("/")
	assert.Contains(t, body, `data-testid="checkout-error"`)
	assert.Contains(t, body, "Insufficient stock")

	b.post("/checkout/dismiss", nil)
	cart = b.cartJSON()
	assert.Equal(t, "idle", cart.Checkout.State)
	assert.Empty(t, cart.Checkout.Error)
	assert.Equal(t, 3, cart.TotalItems)
}

func TestCheckoutRejectedTokenLogsOut(t *testing.T) {
	backend := newFakeBackend()
	backend.orderErr = &api.Error{Status: http.StatusUnauthorized, Message: "Invalid or expired token"}
	b := newBrowser(t, newStorefrontApp(t, backend))
	b.login()
	addToCart(b, "mate-001", "2")

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = b.post("/checkout", nil)
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	e, ok := findLog(entries, "auth.token.rejected")
	require.True(t, ok)
	assert.Equal(t, "checkout", e.Fields["during"])

	resp, _ = b.get("/account")
	assert.Equal(t, "/login", resp.Header.Get("Location"), "session was dropped")

	cart := b.cartJSON()
	assert.Equal(t, "failed", cart.Checkout.State)
	assert.Equal(t, "Invalid or expired token", cart.Checkout.Error)
	assert.Equal(t, 2, cart.TotalItems, "cart survives the logout")
}

func TestCheckoutNetworkFailureUsesFallbackMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.orderErr = errNetwork
	b := newBrowser(t, newStorefrontApp(t, backend))
	b.login()
	addToCart(b, "yerba-001", "1")

	b.post("/checkout", nil)

	cart := b.cartJSON()
	assert.Equal(t, "Could not process your purchase. Please try again.", cart.Checkout.Error)
	_, body := b.get("/")
	assert.NotContains(t, body, "connection refused")
}

func TestCheckoutRetryAfterFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.orderErr = &api.Error{Status: http.StatusServiceUnavailable}
	b := newBrowser(t, newStorefrontApp(t, backend))
	b.login()
	addToCart(b, "mate-001", "1")

	b.post("/checkout", nil)
	assert.Equal(t, "failed", b.cartJSON().Checkout.State)

	backend.mu.Lock()
	backend.orderErr = nil
	backend.mu.Unlock()

	b.post("/checkout", nil)
	cart := b.cartJSON()
	assert.Equal(t, "success", cart.Checkout.State)
	assert.Empty(t, cart.Checkout.Error)
	assert.Equal(t, 2, backend.orderCount())
}
