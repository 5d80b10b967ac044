package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"greenplate/models"
)

// Store exposes typed CRUD accessors over the entity schema. All reads return
// value snapshots; mutation happens only through the write methods. The gorm
// handle must be opened with TranslateError so unique-constraint violations
// are recognisable across drivers.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm handle in a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a transactional Store. Multi-row flows (create
// with ingredients, clone) use this for all-or-nothing behavior.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicateKey)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}

func likePattern(query string) string {
	return "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
}

// ---- Users ----

// CreateUser inserts a new user row. Username collisions surface as
// ErrDuplicateKey.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate("create user", s.db.WithContext(ctx).Create(user).Error)
}

// UserByUsername fetches the user with the given username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate("user by username", err)
	}
	return &user, nil
}

// UserByID fetches the user with the given ID.
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate("user by id", err)
	}
	return &user, nil
}

// SetUserRecipeBook backfills the user's recipe book reference.
func (s *Store) SetUserRecipeBook(ctx context.Context, userID, bookID uint) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("recipe_book_id", bookID)
	if result.Error != nil {
		return translate("set user recipe book", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("set user recipe book: %w", ErrNotFound)
	}
	return nil
}

// ---- Ingredients ----

// CreateIngredient inserts a catalog ingredient.
func (s *Store) CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	return translate("create ingredient", s.db.WithContext(ctx).Create(ingredient).Error)
}

// IngredientByID fetches one ingredient.
func (s *Store) IngredientByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, translate("ingredient by id", err)
	}
	return &ingredient, nil
}

// IngredientByName fetches the ingredient with the exact (case-insensitive) name.
func (s *Store) IngredientByName(ctx context.Context, name string) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := s.db.WithContext(ctx).Where("lower(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&ingredient).Error
	if err != nil {
		return nil, translate("ingredient by name", err)
	}
	return &ingredient, nil
}

// SearchIngredientsByName performs a fuzzy, case-insensitive search where the
// query only has to appear somewhere in the name. Zero matches is an empty
// slice, not an error.
func (s *Store) SearchIngredientsByName(ctx context.Context, query string) ([]models.Ingredient, error) {
	results := []models.Ingredient{}
	err := s.db.WithContext(ctx).
		Where("lower(name) LIKE ?", likePattern(query)).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		return nil, translate("search ingredients", err)
	}
	return results, nil
}

// ---- Ingredient replacements ----

// CreateReplacement inserts a substitution edge. A row replacing an
// ingredient with itself is rejected with ErrInvalidReference.
func (s *Store) CreateReplacement(ctx context.Context, replacement *models.IngredientReplacement) error {
	if replacement.ReplacesIngredientID == replacement.ReplacementIngredientID {
		return fmt.Errorf("create replacement: an ingredient cannot replace itself: %w", ErrInvalidReference)
	}
	return translate("create replacement", s.db.WithContext(ctx).Create(replacement).Error)
}

// ReplacementsFor returns every substitution edge leaving the given
// ingredient, with the replacement ingredient preloaded. Unknown ingredients
// yield an empty slice; absence of ethical concern is the default.
func (s *Store) ReplacementsFor(ctx context.Context, ingredientID uint) ([]models.IngredientReplacement, error) {
	results := []models.IngredientReplacement{}
	err := s.db.WithContext(ctx).
		Preload("Replacement").
		Where("replaces_ingredient_id = ?", ingredientID).
		Order("id asc").
		Find(&results).Error
	if err != nil {
		return nil, translate("replacements for ingredient", err)
	}
	return results, nil
}

// ---- Recipes ----

// CreateRecipe inserts a recipe row. A per-owner name collision surfaces as
// ErrDuplicateKey.
func (s *Store) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	return translate("create recipe", s.db.WithContext(ctx).Create(recipe).Error)
}

// RecipeByID fetches a recipe with its ingredient associations preloaded.
func (s *Store) RecipeByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Ingredients").
		Preload("Ingredients.Ingredient").
		First(&recipe, id).Error
	if err != nil {
		return nil, translate("recipe by id", err)
	}
	return &recipe, nil
}

// SearchPublicRecipesByName performs a fuzzy, case-insensitive search over
// publicly visible recipes.
func (s *Store) SearchPublicRecipesByName(ctx context.Context, query string) ([]models.Recipe, error) {
	results := []models.Recipe{}
	err := s.db.WithContext(ctx).
		Preload("Ingredients").
		Preload("Ingredients.Ingredient").
		Where("is_public = ?", true).
		Where("lower(name) LIKE ?", likePattern(query)).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		return nil, translate("search recipes", err)
	}
	return results, nil
}

// SetRecipeVisibility flips the public flag on a recipe.
func (s *Store) SetRecipeVisibility(ctx context.Context, recipeID uint, isPublic bool) error {
	result := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Update("is_public", isPublic)
	if result.Error != nil {
		return translate("set recipe visibility", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("set recipe visibility: %w", ErrNotFound)
	}
	return nil
}

// DeleteRecipe removes the recipe row itself. Callers cascade the join and
// membership rows first; see Composer.DeleteByOwner.
func (s *Store) DeleteRecipe(ctx context.Context, recipeID uint) error {
	return translate("delete recipe", s.db.WithContext(ctx).Delete(&models.Recipe{}, recipeID).Error)
}

// RecipeIngredients returns the association rows for a recipe, ingredient
// preloaded, in insertion order.
func (s *Store) RecipeIngredients(ctx context.Context, recipeID uint) ([]models.RecipeIngredient, error) {
	results := []models.RecipeIngredient{}
	err := s.db.WithContext(ctx).
		Preload("Ingredient").
		Where("recipe_id = ?", recipeID).
		Order("id asc").
		Find(&results).Error
	if err != nil {
		return nil, translate("recipe ingredients", err)
	}
	return results, nil
}

// AddRecipeIngredient appends one association row.
func (s *Store) AddRecipeIngredient(ctx context.Context, recipeID, ingredientID uint) error {
	join := models.RecipeIngredient{RecipeID: recipeID, IngredientID: ingredientID}
	return translate("add recipe ingredient", s.db.WithContext(ctx).Create(&join).Error)
}

// DeleteRecipeIngredients removes every association row for a recipe.
func (s *Store) DeleteRecipeIngredients(ctx context.Context, recipeID uint) error {
	err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Delete(&models.RecipeIngredient{}).Error
	return translate("delete recipe ingredients", err)
}

// ReassignRecipeIngredient repoints association rows matching (recipe, from)
// at a different ingredient and reports how many rows changed. Zero rows is
// not an error; the caller decides what that means.
func (s *Store) ReassignRecipeIngredient(ctx context.Context, recipeID, fromIngredientID, toIngredientID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.RecipeIngredient{}).
		Where("recipe_id = ? AND ingredient_id = ?", recipeID, fromIngredientID).
		Update("ingredient_id", toIngredientID)
	if result.Error != nil {
		return 0, translate("reassign recipe ingredient", result.Error)
	}
	return result.RowsAffected, nil
}

// ---- Recipe books ----

// CreateRecipeBook inserts a book row; one per owner.
func (s *Store) CreateRecipeBook(ctx context.Context, book *models.RecipeBook) error {
	return translate("create recipe book", s.db.WithContext(ctx).Create(book).Error)
}

// RecipeBookByID fetches one recipe book.
func (s *Store) RecipeBookByID(ctx context.Context, id uint) (*models.RecipeBook, error) {
	var book models.RecipeBook
	if err := s.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, translate("recipe book by id", err)
	}
	return &book, nil
}

// AddRecipeToBook places a recipe into a book. Adding the same recipe twice
// surfaces as ErrDuplicateKey so callers can treat it as already-present.
func (s *Store) AddRecipeToBook(ctx context.Context, bookID, recipeID uint) error {
	join := models.RecipeBookRecipe{RecipeBookID: bookID, RecipeID: recipeID}
	return translate("add recipe to book", s.db.WithContext(ctx).Create(&join).Error)
}

// RecipesInBook returns the recipes in a book, associations preloaded.
func (s *Store) RecipesInBook(ctx context.Context, bookID uint) ([]models.Recipe, error) {
	memberships := []models.RecipeBookRecipe{}
	err := s.db.WithContext(ctx).
		Preload("Recipe").
		Preload("Recipe.Ingredients").
		Preload("Recipe.Ingredients.Ingredient").
		Where("recipe_book_id = ?", bookID).
		Order("id asc").
		Find(&memberships).Error
	if err != nil {
		return nil, translate("recipes in book", err)
	}

	recipes := make([]models.Recipe, 0, len(memberships))
	for _, membership := range memberships {
		if membership.Recipe != nil {
			recipes = append(recipes, *membership.Recipe)
		}
	}
	return recipes, nil
}

// RemoveRecipeFromAllBooks drops every membership row for a recipe. Used when
// a recipe is deleted.
func (s *Store) RemoveRecipeFromAllBooks(ctx context.Context, recipeID uint) error {
	err := s.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Delete(&models.RecipeBookRecipe{}).Error
	return translate("remove recipe from books", err)
}
