package domain

import (
	"errors"
)

var (
	MessageSuccessGetRecipes      = "success get recipes"
	MessageSuccessGetRecipeDetail = "success get recipe detail"
	MessageSuccessCreateRecipe    = "recipe created successfully"
	MessageSuccessUpdateRecipe    = "recipe updated successfully"
	MessageSuccessDeleteRecipe    = "recipe deleted successfully"
	MessageSuccessAddFavorite     = "recipe added to favorites"
	MessageSuccessAddToCart       = "recipe added to shopping cart"
	MessageSuccessGetShortLink    = "success get short link"

	MessageFailedGetRecipes      = "failed to get recipes"
	MessageFailedGetRecipeDetail = "failed to get recipe detail"
	MessageFailedCreateRecipe    = "failed to create recipe"
	MessageFailedUpdateRecipe    = "failed to update recipe"
	MessageFailedDeleteRecipe    = "failed to delete recipe"
	MessageFailedAddFavorite     = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite  = "failed to remove recipe from favorites"
	MessageFailedAddToCart       = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart  = "failed to remove recipe from shopping cart"
	MessageFailedDownloadCart    = "failed to download shopping list"
	MessageFailedGetShortLink    = "failed to get short link"

	ErrRecipeNotFound      = errors.New("recipe not found")
	ErrNotRecipeAuthor     = errors.New("only the author can modify this recipe")
	ErrIngredientsRequired = errors.New("ingredients list cannot be empty")
	ErrDuplicateIngredient = errors.New("ingredients list cannot contain duplicates")
	ErrUnknownIngredient   = errors.New("ingredient does not exist")
	ErrInvalidAmount       = errors.New("ingredient amount must be at least 1")
	ErrInvalidImage        = errors.New("invalid image data")
	ErrAlreadyFavorited    = errors.New("recipe already in favorites")
	ErrNotFavorited        = errors.New("recipe is not in favorites")
	ErrAlreadyInCart       = errors.New("recipe already in shopping cart")
	ErrNotInCart           = errors.New("recipe is not in shopping cart")
	ErrEmptyCart           = errors.New("shopping cart is empty")
)

type (
	RecipeIngredientRequest struct {
		ID     uint `json:"id" validate:"required"`
		Amount int  `json:"amount" validate:"required,min=1"`
	}

	CreateRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Image       string                    `json:"image" validate:"required"`
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	}

	UpdateRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Image       string                    `json:"image" validate:"omitempty"`
		Ingredients []RecipeIngredientRequest `json:"ingredients" validate:"required,min=1,dive"`
	}

	RecipeIngredientResponse struct {
		ID              uint   `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               uint                       `json:"id"`
		Author           UserResponse               `json:"author"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
		Name             string                     `json:"name"`
		Image            string                     `json:"image"`
		Text             string                     `json:"text"`
		CookingTime      int                        `json:"cooking_time"`
	}

	RecipeShortResponse struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeFilter struct {
		AuthorID         uint
		IsFavorited      bool
		IsInShoppingCart bool
	}

	ShortLinkResponse struct {
		ShortLink string `json:"short-link"`
	}
)
