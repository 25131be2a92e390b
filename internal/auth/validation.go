package auth

import (
	"strings"

	"github.com/contactkeeper/backend/internal/validate"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 10
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateRegisterRequest(req *RegisterRequest) error {
	var v validate.Errors
	v.Check(strings.TrimSpace(req.Name) != "", "name", "Please add a name")
	v.Check(validate.IsEmail(strings.TrimSpace(req.Email)), "email", "Please include a valid email")
	n := validate.Length(req.Password)
	v.Check(n >= minPasswordLength && n <= maxPasswordLength, "password",
		"Please enter a password with 6 to 10 characters")
	return v.Err()
}

func validateLoginRequest(req *LoginRequest) error {
	var v validate.Errors
	v.Check(validate.IsEmail(strings.TrimSpace(req.Email)), "email", "Please include a valid email")
	v.Check(req.Password != "", "password", "Password is required")
	return v.Err()
}
