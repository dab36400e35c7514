package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/api"
	"storefront/internal/appstate"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/http/handlers"
	"storefront/internal/repos"
)

const anaPassword = "Passw0rd!"

var ana = domain.User{ID: "u-ana", Email: "ana@storefront.test", FirstName: "Ana", LastName: "García"}

// fakeBackend stands in for the order/auth/product API.
type fakeBackend struct {
	mu            sync.Mutex
	products      map[string]domain.Product
	token         string
	orders        []domain.OrderSubmission
	orderTokens   []string
	orderErr      error
	registerErr   error
	registerCalls int
	listErr       error
	user          domain.User
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: map[string]domain.Product{
			"mate-001":  {ID: "mate-001", Name: "Mate de calabaza", Price: 8500},
			"yerba-001": {ID: "yerba-001", Name: "Yerba mate 1kg", Price: 4200},
		},
		token: "tok-ana",
		user:  ana,
	}
}

func (b *fakeBackend) CreateOrder(ctx context.Context, token string, sub domain.OrderSubmission) (*domain.OrderReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderTokens = append(b.orderTokens, token)
	if b.orderErr != nil {
		return nil, b.orderErr
	}
	b.orders = append(b.orders, sub)
	return &domain.OrderReceipt{ID: fmt.Sprintf("order-%d", len(b.orders)), Total: sub.Total}, nil
}

func (b *fakeBackend) ListOrders(ctx context.Context, token string) ([]domain.OrderReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := []domain.OrderReceipt{}
	for i, o := range b.orders {
		out = append(out, domain.OrderReceipt{ID: fmt.Sprintf("order-%d", i+1), Total: o.Total, Products: o.Products})
	}
	return out, nil
}

func (b *fakeBackend) Login(ctx context.Context, creds api.Credentials) (*api.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if creds.Email != b.user.Email || creds.Password != anaPassword {
		return nil, &api.Error{Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	return &api.Session{Token: b.token, User: b.user}, nil
}

func (b *fakeBackend) Register(ctx context.Context, reg api.Registration) (*api.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerCalls++
	if b.registerErr != nil {
		return nil, b.registerErr
	}
	u := domain.User{ID: "u-new", Email: reg.Email, FirstName: reg.FirstName, LastName: reg.LastName}
	return &api.Session{Token: "tok-new", User: u}, nil
}

func (b *fakeBackend) UpdateProfile(ctx context.Context, token string, p api.Profile) (*domain.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if token != b.token {
		return nil, &api.Error{Status: http.StatusUnauthorized, Message: "Invalid or expired token"}
	}
	b.user.FirstName, b.user.LastName = p.FirstName, p.LastName
	u := b.user
	return &u, nil
}

func (b *fakeBackend) Products(ctx context.Context) ([]domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Product, 0, len(b.products))
	for _, id := range []string{"mate-001", "yerba-001"} {
		if p, ok := b.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *fakeBackend) Product(ctx context.Context, id string) (*domain.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return nil, &api.Error{Status: http.StatusNotFound, Message: "Product not found"}
	}
	return &p, nil
}

func (b *fakeBackend) orderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orderTokens)
}

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newDeps(t *testing.T, backend handlers.Backend) *handlers.Deps {
	return depsOn(openTestDB(t), backend)
}

func depsOn(db *sqlx.DB, backend handlers.Backend) *handlers.Deps {
	state := appstate.New(appstate.Options{
		Durable:    repos.NewDurableRepo(db),
		Sessions:   repos.NewSessionRepo(db, time.Hour),
		Orders:     backend,
		ResetDelay: time.Hour,
	})
	return handlers.NewDeps(state, backend, config.Config{})
}

// newStorefrontApp wires the storefront routes the way cmd/storefront does,
// minus the rate limiters.
func newStorefrontApp(t *testing.T, backend handlers.Backend) *fiber.App {
	return storefrontOn(openTestDB(t), backend)
}

// storefrontOn builds an app over an existing database, like a server restart.
func storefrontOn(db *sqlx.DB, backend handlers.Backend) *fiber.App {
	deps := depsOn(db, backend)
	app := fiber.New(fiber.Config{Views: handlers.NewViews("../../web/templates")})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB
	app.Use(requestid.New())
	app.Use(csrf.New(csrf.Config{KeyLookup: "form:csrf", CookieName: "csrf_", CookieSameSite: "Lax"}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})
	app.Use(deps.Session.Handler())

	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/product/:id", deps.CatalogHandler.Detail)
	app.Post("/cart/add", deps.CartHandler.Add)
	app.Post("/cart/increment/:id", deps.CartHandler.Increment)
	app.Post("/cart/decrement/:id", deps.CartHandler.Decrement)
	app.Post("/cart/delete/:id", deps.CartHandler.Delete)
	app.Post("/cart/clear", deps.CartHandler.Clear)
	app.Post("/cart/open", deps.CartHandler.Open)
	app.Post("/cart/close", deps.CartHandler.Close)
	app.Post("/cart/toggle", deps.CartHandler.Toggle)
	app.Get("/api/cart", deps.CartHandler.JSON)
	app.Post("/checkout", deps.CheckoutHandler.Start)
	app.Post("/checkout/dismiss", deps.CheckoutHandler.DismissError)
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", deps.AuthHandler.Login)
	app.Get("/register", deps.AuthHandler.RegisterForm)
	app.Post("/register", deps.AuthHandler.Register)
	app.Post("/logout", deps.AuthHandler.Logout)
	app.Get("/account", handlers.RequireUser(), deps.AccountHandler.Show)
	app.Post("/account", handlers.RequireUser(), deps.AccountHandler.Update)
	app.Get("/orders", handlers.RequireUser(), deps.OrderHandler.History)
	return app
}

// browser keeps cookies between requests like a real one would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func newBrowser(t *testing.T, app *fiber.App) *browser {
	return &browser{t: t, app: app, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp := b.do(httptest.NewRequest("GET", path, nil))
	return resp, readBody(resp)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	if b.cookies["csrf_"] == "" {
		b.get("/login")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", b.cookies["csrf_"])
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) login() {
	b.t.Helper()
	resp := b.post("/login", url.Values{"email": {ana.Email}, "password": {anaPassword}})
	if resp.StatusCode != http.StatusFound {
		b.t.Fatalf("login: expected redirect, got %d: %s", resp.StatusCode, readBody(resp))
	}
}

func (b *browser) cartJSON() cartPayload {
	b.t.Helper()
	_, body := b.get("/api/cart")
	var p cartPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		b.t.Fatalf("decode /api/cart: %v body=%s", err, body)
	}
	return p
}

type cartPayload struct {
	Items []struct {
		Product  domain.Product `json:"product"`
		Quantity int            `json:"quantity"`
		Subtotal float64        `json:"subtotal"`
	} `json:"items"`
	IsOpen     bool    `json:"isOpen"`
	Total      float64 `json:"total"`
	TotalItems int     `json:"totalItems"`
	Checkout   struct {
		State   string `json:"state"`
		Error   string `json:"error"`
		Notice  string `json:"notice"`
		OrderID string `json:"orderId"`
	} `json:"checkout"`
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

type logEntry struct {
	Level  string                 `json:"level"`
	Action string                 `json:"action"`
	Err    string                 `json:"err"`
	Fields map[string]interface{} `json:"fields"`
}

// capture logs by temporarily replacing the standard logger output
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	mu.Lock()
	defer mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

var errNetwork = errors.New("dial tcp 127.0.0.1:4000: connect: connection refused")
