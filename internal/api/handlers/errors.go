package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"foodgram/domain"
)

// statusForError maps domain errors onto HTTP statuses. Duplicate and missing
// relations deliberately map to 400, not 409/404: the addressed resource
// exists, only the relation is wrong.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrIngredientNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotRecipeAuthor):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenNotFound):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusBadRequest
	}
}
