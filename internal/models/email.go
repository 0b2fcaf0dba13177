package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidEmail reports whether email is a syntactically valid address
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
