package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type loginForm struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=72"`
	Next     string
}

type registerForm struct {
	Username string `validate:"required,min=3,max=32,excludesall= /"`
	Password string `validate:"required,min=8,max=72"`
	Confirm  string `validate:"required,eqfield=Password"`
	Role     string `validate:"required,oneof=admin client"`
}

func (f *registerForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Role = strings.TrimSpace(f.Role)
	if f.Role == "" {
		f.Role = model.RoleClient
	}
}

var registerMessages = map[string]string{
	"Username": "Usernames are 3 to 32 characters without spaces or slashes.",
	"Password": "Passwords need at least 8 characters.",
	"Confirm":  "The passwords do not match.",
	"Role":     "Choose a valid role.",
}

// explainRegister turns validator errors into one message per offending field.
func explainRegister(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Please check the form."}
	}
	seen := map[string]bool{}
	var out []string
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		if msg, ok := registerMessages[fe.Field()]; ok {
			out = append(out, msg)
		}
	}
	if len(out) == 0 {
		out = append(out, "Please check the form.")
	}
	return out
}
