package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

// usernameRegex mirrors the allowed username characters: letters, digits and @/./+/-/_
var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

func InitValidator() {
	Validate = validator.New()
	_ = Validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
}
