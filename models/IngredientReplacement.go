package models

import (
	"gorm.io/gorm"
)

// IngredientReplacement is a directed suggestion that one ingredient is a more
// ethical substitute for another. Fan-out is allowed: several replacements may
// point away from the same source ingredient. A row may never replace an
// ingredient with itself; the store rejects that at creation.
type IngredientReplacement struct {
	gorm.Model
	ReplacesIngredientID    uint   `gorm:"not null;uniqueIndex:idx_replacement_pair" json:"replaces_ingredient_id"`
	ReplacementIngredientID uint   `gorm:"not null;uniqueIndex:idx_replacement_pair" json:"replacement_ingredient_id"`
	Reason                  string `gorm:"type:text" json:"reason"`
	ReasonSource            string `json:"reason_source"`

	Replaces    *Ingredient `gorm:"foreignKey:ReplacesIngredientID" json:"replaces,omitempty"`
	Replacement *Ingredient `gorm:"foreignKey:ReplacementIngredientID" json:"replacement,omitempty"`
}
