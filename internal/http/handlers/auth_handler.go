package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/api"
	"storefront/internal/log"
	"storefront/internal/validate"
)

const (
	loginFailed         = "Could not sign in"
	loginUnreachable    = "Could not sign in. Check your credentials."
	registerFailed      = "Could not register user"
	registerUnreachable = "Could not register user. Please try again."
	passwordTooShort    = "Password must be at least 6 characters"
	sessionFailed       = "Could not start your session. Please try again."
)

type AuthHandler struct {
	API Backend
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var f validate.LoginForm
	if err := c.BodyParser(&f); err != nil {
		return render(c.Status(fiber.StatusBadRequest), "login", fiber.Map{"Err": "Invalid form data"})
	}
	if err := validate.Struct(&f); err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return render(c.Status(fiber.StatusUnauthorized), "login", fiber.Map{"Err": "Invalid email or password", "Email": f.Email})
	}

	sess, err := h.API.Login(c.UserContext(), api.Credentials{Email: f.Email, Password: f.Password})
	if err != nil {
		msg, status := apiFailure(err, loginFailed, loginUnreachable)
		log.Security(c, "auth.login.fail", map[string]any{"email": f.Email, "status": status})
		return render(c.Status(status), "login", fiber.Map{"Err": msg, "Email": f.Email})
	}
	if err := h.signIn(c, sess); err != nil {
		return render(c.Status(fiber.StatusInternalServerError), "login", fiber.Map{"Err": sessionFailed, "Email": f.Email})
	}
	log.Audit(c, "auth.login.success", map[string]any{"email": f.Email})
	return c.Redirect("/")
}

func (h *AuthHandler) RegisterForm(c *fiber.Ctx) error {
	return render(c, "register", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var f validate.RegisterForm
	if err := c.BodyParser(&f); err != nil {
		return render(c.Status(fiber.StatusBadRequest), "register", fiber.Map{"Err": "Invalid form data"})
	}
	form := fiber.Map{"Email": f.Email, "FirstName": f.FirstName, "LastName": f.LastName}
	// Checked first so a short password never reaches the backend.
	if !validate.Password(f.Password) {
		form["Err"] = passwordTooShort
		return render(c.Status(fiber.StatusBadRequest), "register", form)
	}
	if err := validate.Struct(&f); err != nil {
		log.Security(c, "validation.fail", map[string]any{"form": "register"})
		form["Err"] = validate.Message(err)
		return render(c.Status(fiber.StatusBadRequest), "register", form)
	}

	sess, err := h.API.Register(c.UserContext(), api.Registration{
		Email:     f.Email,
		Password:  f.Password,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	})
	if err != nil {
		msg, status := apiFailure(err, registerFailed, registerUnreachable)
		log.Security(c, "auth.register.fail", map[string]any{"email": f.Email, "status": status})
		form["Err"] = msg
		return render(c.Status(status), "register", form)
	}
	if err := h.signIn(c, sess); err != nil {
		form["Err"] = sessionFailed
		return render(c.Status(fiber.StatusInternalServerError), "register", form)
	}
	log.Audit(c, "auth.register.success", map[string]any{"email": f.Email})
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if a := authFrom(c); a != nil {
		a.Logout(c.UserContext())
	}
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/login")
}

func (h *AuthHandler) signIn(c *fiber.Ctx, sess *api.Session) error {
	a := authFrom(c)
	if a == nil {
		return errors.New("no auth store on request")
	}
	if err := a.SetAuth(c.UserContext(), sess.Token, sess.User); err != nil {
		log.Error(c, "auth.session.store", err, nil)
		return err
	}
	return nil
}

// apiFailure picks the message and status for a failed backend call: the
// backend's own message when it answered, rejected otherwise, unreachable
// when it did not answer at all.
func apiFailure(err error, rejected, unreachable string) (string, int) {
	var ae *api.Error
	if errors.As(err, &ae) {
		status := ae.Status
		switch {
		case status >= 500:
			status = fiber.StatusBadGateway
		case status < 400:
			status = fiber.StatusBadRequest
		}
		if msg := ae.UserMessage(); msg != "" {
			return msg, status
		}
		return rejected, status
	}
	return unreachable, fiber.StatusBadGateway
}
