package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"storefront/internal/api"
	"storefront/internal/appstate"
	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/storage"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Session-scoped storage: Redis when configured, SQLite otherwise.
	var sessions storage.SessionBackend
	var purger appstate.Purger
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("redis %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		sessions = storage.NewRedisSessions(rdb, cfg.SessionTTL)
		log.Printf("[sessions] redis %s", cfg.RedisAddr)
	} else {
		sessionRepo := repos.NewSessionRepo(db, cfg.SessionTTL)
		sessions, purger = sessionRepo, sessionRepo
		log.Printf("[sessions] sqlite %s", cfg.DBDSN)
	}

	backend := api.New(cfg.APIBaseURL, cfg.APITimeout)
	state := appstate.New(appstate.Options{
		Durable:    repos.NewDurableRepo(db),
		Sessions:   sessions,
		Orders:     backend,
		ResetDelay: cfg.CheckoutResetDelay,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go state.RunJanitor(ctx, time.Minute, purger)

	app := fiber.New(fiber.Config{
		Views: handlers.NewViews(cfg.TemplatesDir),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Log and show a friendly message
			applog.Error(c, "server.error", err, nil)
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			// Avoid leaking internals; best-effort render
			if rerr := c.Status(code).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(code).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("start", time.Now())
		return c.Next()
	})
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(string(c.Request().URI().Path()), "/static/")
		},
	}))
	app.Static("/static", cfg.StaticDir)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	deps := handlers.NewDeps(state, backend, cfg)
	app.Use(deps.Session.Handler())

	// Catalog
	app.Get("/", deps.CatalogHandler.Home)
	app.Get("/product/:id", deps.CatalogHandler.Detail)

	// Cart drawer
	app.Post("/cart/add", deps.CartHandler.Add)
	app.Post("/cart/increment/:id", deps.CartHandler.Increment)
	app.Post("/cart/decrement/:id", deps.CartHandler.Decrement)
	app.Post("/cart/delete/:id", deps.CartHandler.Delete)
	app.Post("/cart/clear", deps.CartHandler.Clear)
	app.Post("/cart/open", deps.CartHandler.Open)
	app.Post("/cart/close", deps.CartHandler.Close)
	app.Post("/cart/toggle", deps.CartHandler.Toggle)
	app.Get("/api/cart", deps.CartHandler.JSON)

	// Checkout
	app.Post("/checkout", deps.CheckoutHandler.Start)
	app.Post("/checkout/dismiss", deps.CheckoutHandler.DismissError)

	// Auth routes (login/register throttled)
	authLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.auth.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	})
	app.Get("/login", deps.AuthHandler.LoginForm)
	app.Post("/login", authLimiter, deps.AuthHandler.Login)
	app.Get("/register", deps.AuthHandler.RegisterForm)
	app.Post("/register", authLimiter, deps.AuthHandler.Register)
	app.Post("/logout", deps.AuthHandler.Logout)

	// Signed-in pages
	app.Get("/account", handlers.RequireUser(), deps.AccountHandler.Show)
	app.Post("/account", handlers.RequireUser(), deps.AccountHandler.Update)
	app.Get("/orders", handlers.RequireUser(), deps.OrderHandler.History)

	// 404
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
