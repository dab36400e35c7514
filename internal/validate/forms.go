package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type LoginForm struct {
	Email    string `form:"email" validate:"required,email,max=100"`
	Password string `form:"password" validate:"required,max=72"`
}

type RegisterForm struct {
	Email     string `form:"email" validate:"required,email,max=100"`
	Password  string `form:"password" validate:"required,min=6,max=72"`
	FirstName string `form:"nombre" validate:"required,max=40"`
	LastName  string `form:"apellido" validate:"max=40"`
}

type ProfileForm struct {
	FirstName string `form:"nombre" validate:"required,max=40"`
	LastName  string `form:"apellido" validate:"max=40"`
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name so messages match the inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct trims string fields in place and validates s against its tags.
func Struct(s any) error {
	trimStrings(s)
	return structValidator.Struct(s)
}

// FieldMessage is one failed rule, worded for the user.
type FieldMessage struct {
	Field string
	Msg   string
}

// Fields lists the failed rules of a validation error, nil for other errors.
func Fields(err error) []FieldMessage {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make([]FieldMessage, 0, len(ves))
	for _, fe := range ves {
		field := fe.Field()
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", field)
		case "email":
			msg = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			msg = fmt.Sprintf("%s is invalid", field)
		}
		out = append(out, FieldMessage{Field: field, Msg: msg})
	}
	return out
}

// Message turns a validation error into text safe to show the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	fields := Fields(err)
	if len(fields) == 0 {
		return "Invalid form data"
	}
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Msg
	}
	return strings.Join(messages, "; ")
}

func trimStrings(s any) {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		// Passwords are compared byte for byte by the backend.
		if f.Kind() == reflect.String && f.CanSet() && v.Type().Field(i).Tag.Get("form") != "password" {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
