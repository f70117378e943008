package recipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils"
	"foodgram/internal/utils/storage"
	"foodgram/pkg/ingredient"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID uint) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID uint, req domain.UpdateRecipeRequest, userID uint) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID, userID uint) error
		GetRecipeByID(ctx context.Context, recipeID, userID uint) (domain.RecipeResponse, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, userID uint) ([]domain.RecipeResponse, int64, error)

		AddFavorite(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error)
		RemoveFavorite(ctx context.Context, recipeID, userID uint) error
		AddToCart(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error)
		RemoveFromCart(ctx context.Context, recipeID, userID uint) error

		DownloadShoppingCart(ctx context.Context, userID uint) (string, error)

		GetShortLink(ctx context.Context, recipeID uint) (domain.ShortLinkResponse, error)
		ResolveShortLink(ctx context.Context, recipeID uint) (string, error)
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		ingredientRepository ingredient.IngredientRepository
		s3                   storage.AwsS3
	}
)

func NewRecipeService(recipeRepository RecipeRepository, ingredientRepository ingredient.IngredientRepository, s3 storage.AwsS3) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		ingredientRepository: ingredientRepository,
		s3:                   s3,
	}
}

// validateIngredients enforces the write-time invariants on the ingredient
// list: non-empty, no duplicate ids, every amount at least 1, every id known.
func (s *recipeService) validateIngredients(ctx context.Context, items []domain.RecipeIngredientRequest) error {
	if len(items) == 0 {
		return domain.ErrIngredientsRequired
	}

	seen := make(map[uint]bool, len(items))
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if item.Amount < 1 {
			return domain.ErrInvalidAmount
		}
		if seen[item.ID] {
			return domain.ErrDuplicateIngredient
		}
		seen[item.ID] = true
		ids = append(ids, item.ID)
	}

	existing, err := s.ingredientRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(existing) != len(ids) {
		return domain.ErrUnknownIngredient
	}

	return nil
}

func (s *recipeService) uploadImage(ctx context.Context, data string) (string, error) {
	content, contentType, ext, err := storage.DecodeBase64Image(data)
	if err != nil {
		return "", domain.ErrInvalidImage
	}

	key := fmt.Sprintf("recipes/%s.%s", uuid.New().String(), ext)
	return s.s3.UploadFile(ctx, key, content, contentType)
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID uint) (domain.RecipeResponse, error) {
	if err := s.validateIngredients(ctx, req.Ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}

	imageURL, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		AuthorID:    userID,
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		ImageURL:    imageURL,
	}

	rows := make([]*entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		rows = append(rows, &entities.RecipeIngredient{
			IngredientID: item.ID,
			Amount:       item.Amount,
		})
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, rows); err != nil {
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeByID(ctx, recipe.ID, userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID uint, req domain.UpdateRecipeRequest, userID uint) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	if recipe.AuthorID != userID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	if err := s.validateIngredients(ctx, req.Ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime

	if req.Image != "" {
		imageURL, err := s.uploadImage(ctx, req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		recipe.ImageURL = imageURL
	}

	rows := make([]*entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		rows = append(rows, &entities.RecipeIngredient{
			IngredientID: item.ID,
			Amount:       item.Amount,
		})
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, rows); err != nil {
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeByID(ctx, recipe.ID, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, userID uint) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID != userID {
		return domain.ErrNotRecipeAuthor
	}

	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) GetRecipeByID(ctx context.Context, recipeID, userID uint) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	return s.toRecipeResponse(ctx, recipe, userID)
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, userID uint) ([]domain.RecipeResponse, int64, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		projection, err := s.toRecipeResponse(ctx, r, userID)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, projection)
	}

	return res, count, nil
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShortResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShortResponse{}, err
	}

	// The unique index is the source of truth for "already exists" so that
	// concurrent duplicate requests collapse into the same error.
	if err := s.recipeRepository.CreateFavorite(ctx, userID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShortResponse{}, domain.ErrAlreadyFavorited
		}
		return domain.RecipeShortResponse{}, err
	}

	return toRecipeShortResponse(recipe), nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID, userID uint) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	rows, err := s.recipeRepository.DeleteFavorite(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFavorited
	}
	return nil
}

func (s *recipeService) AddToCart(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShortResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShortResponse{}, err
	}

	if err := s.recipeRepository.CreateCartItem(ctx, userID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShortResponse{}, domain.ErrAlreadyInCart
		}
		return domain.RecipeShortResponse{}, err
	}

	return toRecipeShortResponse(recipe), nil
}

func (s *recipeService) RemoveFromCart(ctx context.Context, recipeID, userID uint) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	rows, err := s.recipeRepository.DeleteCartItem(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotInCart
	}
	return nil
}

// DownloadShoppingCart renders the aggregated shopping list document for the
// user's cart. An empty cart is an error, not an empty document.
func (s *recipeService) DownloadShoppingCart(ctx context.Context, userID uint) (string, error) {
	recipes, err := s.recipeRepository.GetCartRecipes(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(recipes) == 0 {
		return "", domain.ErrEmptyCart
	}

	rows, err := s.recipeRepository.GetCartIngredients(ctx, userID)
	if err != nil {
		return "", err
	}

	user, err := s.recipeRepository.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	items := aggregateIngredients(rows)
	return renderShoppingList(user, items, recipes, time.Now()), nil
}

func (s *recipeService) GetShortLink(ctx context.Context, recipeID uint) (domain.ShortLinkResponse, error) {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortLinkResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortLinkResponse{}, err
	}

	return domain.ShortLinkResponse{
		ShortLink: fmt.Sprintf("%s/s/%d/", utils.GetConfig("APP_URL"), recipeID),
	}, nil
}

func (s *recipeService) ResolveShortLink(ctx context.Context, recipeID uint) (string, error) {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrRecipeNotFound
		}
		return "", err
	}

	return fmt.Sprintf("/recipes/%d/", recipeID), nil
}

func (s *recipeService) toRecipeResponse(ctx context.Context, recipe *entities.Recipe, userID uint) (domain.RecipeResponse, error) {
	isFavorited := false
	isInCart := false
	isSubscribed := false

	// Flags are always false for an anonymous requester.
	if userID != 0 {
		var err error
		if isFavorited, err = s.recipeRepository.IsFavorited(ctx, userID, recipe.ID); err != nil {
			return domain.RecipeResponse{}, err
		}
		if isInCart, err = s.recipeRepository.IsInCart(ctx, userID, recipe.ID); err != nil {
			return domain.RecipeResponse{}, err
		}
		if isSubscribed, err = s.recipeRepository.IsSubscribed(ctx, userID, recipe.AuthorID); err != nil {
			return domain.RecipeResponse{}, err
		}
	}

	author := domain.UserResponse{ID: recipe.AuthorID, IsSubscribed: isSubscribed}
	if recipe.Author != nil {
		author.Email = recipe.Author.Email
		author.Username = recipe.Author.Username
		author.FirstName = recipe.Author.FirstName
		author.LastName = recipe.Author.LastName
		if recipe.Author.AvatarURL != "" {
			avatar := recipe.Author.AvatarURL
			author.Avatar = &avatar
		}
	}

	ingredients := make([]domain.RecipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, row := range recipe.Ingredients {
		if row.Ingredient == nil {
			continue
		}
		ingredients = append(ingredients, domain.RecipeIngredientResponse{
			ID:              row.Ingredient.ID,
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		})
	}

	return domain.RecipeResponse{
		ID:               recipe.ID,
		Author:           author,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
		Name:             recipe.Name,
		Image:            recipe.ImageURL,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
	}, nil
}

func toRecipeShortResponse(recipe *entities.Recipe) domain.RecipeShortResponse {
	return domain.RecipeShortResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}
