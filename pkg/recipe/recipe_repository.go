package recipe

import (
	"context"

	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error
		DeleteRecipe(ctx context.Context, id uint) error
		GetRecipeByID(ctx context.Context, id uint) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID uint, page, limit int) ([]*entities.Recipe, int64, error)

		CreateFavorite(ctx context.Context, userID, recipeID uint) error
		DeleteFavorite(ctx context.Context, userID, recipeID uint) (int64, error)
		IsFavorited(ctx context.Context, userID, recipeID uint) (bool, error)

		CreateCartItem(ctx context.Context, userID, recipeID uint) error
		DeleteCartItem(ctx context.Context, userID, recipeID uint) (int64, error)
		IsInCart(ctx context.Context, userID, recipeID uint) (bool, error)

		GetCartRecipes(ctx context.Context, userID uint) ([]*entities.Recipe, error)
		GetCartIngredients(ctx context.Context, userID uint) ([]*entities.RecipeIngredient, error)
		GetUserByID(ctx context.Context, id uint) (*entities.User, error)
		IsSubscribed(ctx context.Context, userID, authorID uint) (bool, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

// CreateRecipe persists the recipe together with its full ingredient set in one
// transaction: either everything lands or nothing does.
func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		for _, ing := range ingredients {
			ing.RecipeID = recipe.ID
		}
		return tx.Create(&ingredients).Error
	})
}

// UpdateRecipe saves the recipe fields and atomically replaces the ingredient
// join rows with the supplied set.
func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Ingredients", "Author").Save(recipe).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).
			Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		for _, ing := range ingredients {
			ing.RecipeID = recipe.ID
		}
		return tx.Create(&ingredients).Error
	})
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.FavoriteRecipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.ShoppingCart{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entities.Recipe{}).Error
	})
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id uint) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Ingredients.Ingredient").
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID uint, page, limit int) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64

	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Model(&entities.Recipe{})

	if filter.AuthorID != 0 {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if filter.IsFavorited && userID != 0 {
		query = query.
			Joins("JOIN favorite_recipes ON recipes.id = favorite_recipes.recipe_id").
			Where("favorite_recipes.user_id = ?", userID)
	}
	if filter.IsInShoppingCart && userID != 0 {
		query = query.
			Joins("JOIN shopping_carts ON recipes.id = shopping_carts.recipe_id").
			Where("shopping_carts.user_id = ?", userID)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Author").
		Preload("Ingredients.Ingredient").
		Offset(offset).
		Limit(limit).
		Order("recipes.created_at desc, recipes.id desc").
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

func (r *recipeRepository) CreateFavorite(ctx context.Context, userID, recipeID uint) error {
	favorite := entities.FavoriteRecipe{
		UserID:   userID,
		RecipeID: recipeID,
	}
	return r.db.WithContext(ctx).Create(&favorite).Error
}

func (r *recipeRepository) DeleteFavorite(ctx context.Context, userID, recipeID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.FavoriteRecipe{})
	return res.RowsAffected, res.Error
}

func (r *recipeRepository) IsFavorited(ctx context.Context, userID, recipeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.FavoriteRecipe{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) CreateCartItem(ctx context.Context, userID, recipeID uint) error {
	item := entities.ShoppingCart{
		UserID:   userID,
		RecipeID: recipeID,
	}
	return r.db.WithContext(ctx).Create(&item).Error
}

func (r *recipeRepository) DeleteCartItem(ctx context.Context, userID, recipeID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.ShoppingCart{})
	return res.RowsAffected, res.Error
}

func (r *recipeRepository) IsInCart(ctx context.Context, userID, recipeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.ShoppingCart{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) GetCartRecipes(ctx context.Context, userID uint) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN shopping_carts ON recipes.id = shopping_carts.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Order("recipes.name asc, recipes.id asc").
		Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *recipeRepository) GetCartIngredients(ctx context.Context, userID uint) ([]*entities.RecipeIngredient, error) {
	var rows []*entities.RecipeIngredient
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Joins("JOIN shopping_carts ON recipe_ingredients.recipe_id = shopping_carts.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *recipeRepository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *recipeRepository) IsSubscribed(ctx context.Context, userID, authorID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
