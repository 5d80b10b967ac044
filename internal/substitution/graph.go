package substitution

import (
	"context"

	"greenplate/internal/store"
	"greenplate/models"
)

// Suggestion is one recommended substitute for an ingredient, carrying the
// ethical rationale and where that rationale comes from.
type Suggestion struct {
	Ingredient models.Ingredient `json:"ingredient"`
	Reason     string            `json:"reason"`
	Source     string            `json:"source"`
}

// AnnotatedIngredient pairs an ingredient with its replacement suggestions.
// An empty Replacements slice means the ingredient is ethically fine as-is.
type AnnotatedIngredient struct {
	Ingredient   models.Ingredient `json:"ingredient"`
	Replacements []Suggestion      `json:"replacements"`
}

// AnnotatedRecipe is the recipe → ingredient → replacements nesting consumed
// by the scorer and by the substitution UI. Callers index into Ingredients by
// ingredient ID, so the shape must stay stable.
type AnnotatedRecipe struct {
	Recipe      models.Recipe         `json:"recipe"`
	Ingredients []AnnotatedIngredient `json:"ingredients"`
}

// Graph answers substitution queries over the replacement edges.
type Graph struct {
	store *store.Store
}

// NewGraph builds a Graph over the given store.
func NewGraph(st *store.Store) *Graph {
	return &Graph{store: st}
}

// ReplacementsFor returns the suggested substitutes for an ingredient. An
// unknown ingredient or one with no known substitutes yields an empty slice,
// never an error.
func (g *Graph) ReplacementsFor(ctx context.Context, ingredientID uint) ([]Suggestion, error) {
	rows, err := g.store.ReplacementsFor(ctx, ingredientID)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(rows))
	for _, row := range rows {
		if row.Replacement == nil {
			// Dangling edge; the replacement ingredient no longer resolves.
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Ingredient: *row.Replacement,
			Reason:     row.Reason,
			Source:     row.ReasonSource,
		})
	}
	return suggestions, nil
}

// Annotate attaches the replacement list to every distinct ingredient in the
// recipe. Duplicate association rows collapse to one annotated entry.
func (g *Graph) Annotate(ctx context.Context, recipe models.Recipe) (AnnotatedRecipe, error) {
	annotated := AnnotatedRecipe{
		Recipe:      recipe,
		Ingredients: []AnnotatedIngredient{},
	}

	seen := map[uint]bool{}
	for _, join := range recipe.Ingredients {
		if join.Ingredient == nil || seen[join.IngredientID] {
			continue
		}
		seen[join.IngredientID] = true

		replacements, err := g.ReplacementsFor(ctx, join.IngredientID)
		if err != nil {
			return AnnotatedRecipe{}, err
		}
		annotated.Ingredients = append(annotated.Ingredients, AnnotatedIngredient{
			Ingredient:   *join.Ingredient,
			Replacements: replacements,
		})
	}
	return annotated, nil
}

// AnnotateByID loads the recipe and annotates it.
func (g *Graph) AnnotateByID(ctx context.Context, recipeID uint) (AnnotatedRecipe, error) {
	recipe, err := g.store.RecipeByID(ctx, recipeID)
	if err != nil {
		return AnnotatedRecipe{}, err
	}
	return g.Annotate(ctx, *recipe)
}

// SearchIngredients is the fuzzy name lookup used while building recipes.
func (g *Graph) SearchIngredients(ctx context.Context, query string) ([]models.Ingredient, error) {
	return g.store.SearchIngredientsByName(ctx, query)
}
