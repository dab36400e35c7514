package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/api"
	applog "storefront/internal/log"
	"storefront/internal/validate"
)

type AccountHandler struct {
	API Backend
}

func (h *AccountHandler) Show(c *fiber.Ctx) error {
	return render(c, "account", fiber.Map{"Saved": c.Query("saved") == "1"})
}

// Update saves the profile on the backend, then refreshes the user kept in
// the session without touching the token.
func (h *AccountHandler) Update(c *fiber.Ctx) error {
	var f validate.ProfileForm
	if err := c.BodyParser(&f); err != nil {
		return render(c.Status(fiber.StatusBadRequest), "account", fiber.Map{"Err": "Invalid form data"})
	}
	if err := validate.Struct(&f); err != nil {
		return render(c.Status(fiber.StatusBadRequest), "account", fiber.Map{"Err": validate.Message(err)})
	}

	a := authFrom(c)
	u, err := h.API.UpdateProfile(c.UserContext(), a.Token(), api.Profile{FirstName: f.FirstName, LastName: f.LastName})
	if err != nil {
		msg, status := apiFailure(err, "Could not save your profile", "Could not save your profile. Please try again.")
		applog.Error(c, "account.update.fail", err, nil)
		return render(c.Status(status), "account", fiber.Map{"Err": msg})
	}
	if err := a.UpdateUser(c.UserContext(), *u); err != nil {
		applog.Error(c, "account.session.update", err, nil)
		return render(c.Status(fiber.StatusInternalServerError), "account", fiber.Map{"Err": "Could not save your profile. Please try again."})
	}
	applog.Audit(c, "account.update", map[string]any{"user_id": u.ID})
	return c.Redirect("/account?saved=1")
}
