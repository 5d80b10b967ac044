package models

import (
	"gorm.io/gorm"
)

// Recipe is a named collection of ingredients. A Recipe is owned by at most
// one User (seed recipes have no owner) and may be shared publicly. Recipe
// names are unique per owner.
type Recipe struct {
	gorm.Model
	Name     string `gorm:"not null;uniqueIndex:idx_recipe_owner_name" json:"name"`
	IsPublic bool   `gorm:"not null;default:false" json:"is_public"`
	OwnerID  *uint  `gorm:"uniqueIndex:idx_recipe_owner_name" json:"owner_id,omitempty"`
	Owner    *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
}

// RecipeIngredient maps one Ingredient into one Recipe. Edits replace these
// rows wholesale, so row identity is not stable across edits.
type RecipeIngredient struct {
	gorm.Model
	RecipeID     uint `gorm:"not null;index" json:"recipe_id"`
	IngredientID uint `gorm:"not null" json:"ingredient_id"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
