// Command sandboxapi serves the backend API (auth, products, orders) on
// SANDBOX_PORT for local development of the storefront.
package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"storefront/internal/config"
	"storefront/internal/http/sandbox"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
)

func main() {
	cfg := config.Load()

	db, err := repos.OpenDB(cfg.SandboxDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := repos.Seed(db); err != nil {
		log.Fatalf("seed: %v", err)
	}
	if cfg.JWTSecret == "dev-only-secret" {
		log.Printf("[warn] JWT_SECRET not set, using the development default")
	}

	h := &sandbox.Handler{
		Auth:    services.NewAuthService(repos.NewUserRepo(db), cfg.JWTSecret, cfg.JWTLifetime),
		Catalog: services.NewCatalogService(repos.NewProductRepo(db)),
		Orders:  services.NewOrderService(repos.NewOrderRepo(db)),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "sandbox.error", err, nil)
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "message": "Internal error"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	app.Use(logger.New())

	h.Mount(app.Group("/api"))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	log.Fatal(app.Listen(":" + cfg.SandboxPort))
}
