package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
)

const minPasswordLen = 8

// RegisterInput is the raw registration request.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// normalize trims the identity fields. The password is kept as typed.
func (in RegisterInput) normalize() RegisterInput {
	return RegisterInput{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Password:  in.Password,
	}
}

// validate expects normalized input and reports every failing field.
func validate(in RegisterInput) error {
	verr := &apperr.ValidationError{}
	if in.FirstName == "" {
		verr.Add("firstName", "first name is required")
	}
	if in.LastName == "" {
		verr.Add("lastName", "last name is required")
	}
	switch {
	case in.Email == "":
		verr.Add("email", "email is required")
	case !validEmail(in.Email):
		verr.Add("email", "email must be a valid address")
	}
	switch {
	case in.Password == "":
		verr.Add("password", "password is required")
	case utf8.RuneCountInString(in.Password) < minPasswordLen:
		verr.Add("password", "password should be at least 8 chars")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// validEmail accepts a bare address only, no display name or angle brackets.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
