package handlers

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"

	"storefront/internal/domain"
)

// NewViews loads the page templates with the storefront's helper funcs.
func NewViews(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("price", formatPrice)
	engine.AddFunc("subtotal", func(l domain.CartLine) string { return formatPrice(l.Subtotal()) })
	return engine
}

func formatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// render injects the header and drawer state every page shows.
func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	if v := visitorFrom(c); v != nil {
		data["Cart"] = v.Cart.Snapshot()
		data["Checkout"] = v.Checkout.View()
	}
	// Pick up the token the CSRF middleware put into Locals
	tok, _ := c.Locals("CSRFToken").(string)
	if tok == "" {
		tok = c.Cookies("csrf_")
	}
	if tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return render(c.Status(fiber.StatusNotFound), "notfound", fiber.Map{"Message": msg})
}
