package composer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	applog "greenplate/internal/log"
	"greenplate/internal/store"
	"greenplate/models"
)

// ErrDuplicateRecipeName reports that the owner already has a recipe with the
// requested name. The caller should ask for a different name.
var ErrDuplicateRecipeName = errors.New("a recipe with that name already exists for this owner")

// Composer creates and edits recipes and their ingredient associations.
type Composer struct {
	store *store.Store
}

// New builds a Composer over the given store.
func New(st *store.Store) *Composer {
	return &Composer{store: st}
}

// ParseIngredientIDs filters a submitted list of ingredient IDs down to the
// valid ones. Malformed entries are dropped silently rather than failing the
// whole submission; duplicates collapse to one occurrence.
func ParseIngredientIDs(raw []string) []uint {
	ids := make([]uint, 0, len(raw))
	seen := map[uint]bool{}
	for _, entry := range raw {
		value, err := strconv.ParseUint(strings.TrimSpace(entry), 10, 64)
		if err != nil || value == 0 {
			continue
		}
		id := uint(value)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func dedupe(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := map[uint]bool{}
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CreateWithIngredients creates a recipe owned by owner, associates the given
// ingredients, and places the recipe into the owner's book, all in one
// transaction. Creation order is recipe row, then ingredient rows, then the
// membership row, so a partial failure can never leave a membership pointing
// at a nonexistent recipe.
func (c *Composer) CreateWithIngredients(ctx context.Context, name string, isPublic bool, ingredientIDs []uint, owner *models.User) (*models.Recipe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("recipe name must not be empty: %w", store.ErrInvalidReference)
	}

	recipe := &models.Recipe{
		Name:     name,
		IsPublic: isPublic,
	}
	if owner != nil {
		recipe.OwnerID = &owner.ID
	}

	err := c.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateRecipe(ctx, recipe); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return ErrDuplicateRecipeName
			}
			return err
		}
		for _, ingredientID := range dedupe(ingredientIDs) {
			if err := tx.AddRecipeIngredient(ctx, recipe.ID, ingredientID); err != nil {
				return err
			}
		}
		if owner != nil && owner.RecipeBookID != nil {
			if err := tx.AddRecipeToBook(ctx, *owner.RecipeBookID, recipe.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applog.Debug(ctx, "recipe created", "recipeID", recipe.ID, "ingredients", len(ingredientIDs))
	return recipe, nil
}

// ReplaceIngredientList swaps a recipe's ingredient set wholesale: delete all
// existing association rows, then insert the new set. Ordering carries no
// meaning.
func (c *Composer) ReplaceIngredientList(ctx context.Context, recipeID uint, ingredientIDs []uint) error {
	return c.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.DeleteRecipeIngredients(ctx, recipeID); err != nil {
			return err
		}
		for _, ingredientID := range dedupe(ingredientIDs) {
			if err := tx.AddRecipeIngredient(ctx, recipeID, ingredientID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceIngredient swaps exactly one association row. When the recipe holds
// no row for toReplaceID this is a successful no-op, matching the reference
// behavior for zero-row updates.
func (c *Composer) ReplaceIngredient(ctx context.Context, recipeID, toReplaceID, replaceWithID uint) error {
	rows, err := c.store.ReassignRecipeIngredient(ctx, recipeID, toReplaceID, replaceWithID)
	if err != nil {
		return err
	}
	if rows == 0 {
		applog.Debug(ctx, "replace ingredient matched no rows", "recipeID", recipeID, "toReplaceID", toReplaceID)
	}
	return nil
}

// TogglePublic sets a recipe's visibility. Ownership checks belong to the
// caller; the owner ID is exposed on the Recipe for that purpose.
func (c *Composer) TogglePublic(ctx context.Context, recipeID uint, isPublic bool) error {
	return c.store.SetRecipeVisibility(ctx, recipeID, isPublic)
}

// Clone copies a recipe into a brand-new private recipe owned by owner: the
// source's name verbatim plus deep copies of its association rows, dated now.
// Because the join rows are duplicated rather than shared, later edits to the
// clone can never reach back into the original. Fails with
// ErrDuplicateRecipeName if the owner already has a recipe by that name.
func (c *Composer) Clone(ctx context.Context, recipeID uint, owner *models.User) (uint, error) {
	if owner == nil {
		return 0, fmt.Errorf("clone requires an owner: %w", store.ErrInvalidReference)
	}

	source, err := c.store.RecipeByID(ctx, recipeID)
	if err != nil {
		return 0, err
	}

	clone := &models.Recipe{
		Name:     source.Name,
		IsPublic: false,
		OwnerID:  &owner.ID,
	}

	err = c.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateRecipe(ctx, clone); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return ErrDuplicateRecipeName
			}
			return err
		}
		for _, join := range source.Ingredients {
			if err := tx.AddRecipeIngredient(ctx, clone.ID, join.IngredientID); err != nil {
				return err
			}
		}
		if owner.RecipeBookID != nil {
			if err := tx.AddRecipeToBook(ctx, *owner.RecipeBookID, clone.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	applog.Debug(ctx, "recipe cloned", "sourceID", recipeID, "cloneID", clone.ID, "ownerID", owner.ID)
	return clone.ID, nil
}

// DeleteByOwner deletes a recipe only when ownerID matches its owner, then
// cascades deletion of its association rows and book memberships. A mismatch
// or missing recipe is a silent no-op so unauthorized callers learn nothing.
func (c *Composer) DeleteByOwner(ctx context.Context, recipeID, ownerID uint) error {
	recipe, err := c.store.RecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if recipe.OwnerID == nil || *recipe.OwnerID != ownerID {
		applog.Debug(ctx, "delete refused for non-owner", "recipeID", recipeID, "callerID", ownerID)
		return nil
	}

	return c.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.DeleteRecipeIngredients(ctx, recipeID); err != nil {
			return err
		}
		if err := tx.RemoveRecipeFromAllBooks(ctx, recipeID); err != nil {
			return err
		}
		return tx.DeleteRecipe(ctx, recipeID)
	})
}
