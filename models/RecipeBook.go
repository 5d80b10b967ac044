package models

import (
	"gorm.io/gorm"
)

// RecipeBook is a user's private collection of recipes. Every User has exactly
// zero or one RecipeBook, created alongside the account.
type RecipeBook struct {
	gorm.Model
	OwnerID uint `gorm:"not null;uniqueIndex" json:"owner_id"`

	Recipes []RecipeBookRecipe `gorm:"foreignKey:RecipeBookID" json:"recipes"`
}

// RecipeBookRecipe places a Recipe into a RecipeBook. The unique pair index
// keeps a book from holding two copies of the same recipe.
type RecipeBookRecipe struct {
	gorm.Model
	RecipeBookID uint `gorm:"not null;uniqueIndex:idx_book_recipe" json:"recipe_book_id"`
	RecipeID     uint `gorm:"not null;uniqueIndex:idx_book_recipe" json:"recipe_id"`

	Recipe *Recipe `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
}
