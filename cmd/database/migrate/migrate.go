package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"foodgram/entities"
)

func Migrate(db *gorm.DB) error {
	models := []any{
		&entities.User{},
		&entities.Subscription{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.RecipeIngredient{},
		&entities.FavoriteRecipe{},
		&entities.ShoppingCart{},
	}

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Fatalf("Error migrating %T: %v", model, err)
			return err
		}
	}

	fmt.Println("Database migration complete")
	return nil
}
