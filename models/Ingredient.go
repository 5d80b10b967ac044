package models

import (
	"gorm.io/gorm"
)

// Ingredient is a single ingredient in the catalog. A Recipe consists of zero
// or more Ingredients, linked through RecipeIngredient rows. Ingredients are
// created administratively or by the import tool and are never deleted.
type Ingredient struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}
