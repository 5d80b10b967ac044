package book

import (
	"context"
	"errors"
	"fmt"

	"greenplate/internal/composer"
	applog "greenplate/internal/log"
	"greenplate/internal/store"
	"greenplate/internal/substitution"
	"greenplate/internal/undo"
	"greenplate/models"
)

// Service orchestrates the composer, substitution graph, scorer, and undo
// ledger into the operations the web layer consumes.
type Service struct {
	store    *store.Store
	graph    *substitution.Graph
	composer *composer.Composer
	ledger   *undo.Ledger
}

// New wires a Service from its collaborators.
func New(st *store.Store, graph *substitution.Graph, comp *composer.Composer, ledger *undo.Ledger) *Service {
	return &Service{
		store:    st,
		graph:    graph,
		composer: comp,
		ledger:   ledger,
	}
}

// ScoredRecipe pairs a recipe with its ethical score. Score is nil when the
// recipe has no defined score (no ingredients) or when scoring it failed.
type ScoredRecipe struct {
	Recipe models.Recipe `json:"recipe"`
	Score  *float64      `json:"score"`
}

// ListWithScores returns every recipe in a book together with its current
// ethical score. A scoring failure on one recipe degrades that recipe's score
// to nil and the listing continues; one broken recipe must not take the whole
// book down.
func (s *Service) ListWithScores(ctx context.Context, bookID uint) ([]ScoredRecipe, error) {
	recipes, err := s.store.RecipesInBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredRecipe, 0, len(recipes))
	for _, recipe := range recipes {
		entry := ScoredRecipe{Recipe: recipe}

		annotated, err := s.graph.Annotate(ctx, recipe)
		if err != nil {
			applog.Warn(ctx, "scoring degraded for recipe", "recipeID", recipe.ID, "error", err)
			scored = append(scored, entry)
			continue
		}
		if value, ok := substitution.Score(annotated); ok {
			entry.Score = &value
		}
		scored = append(scored, entry)
	}
	return scored, nil
}

// GetRecipe returns one recipe with its full substitution annotation.
func (s *Service) GetRecipe(ctx context.Context, recipeID uint) (substitution.AnnotatedRecipe, error) {
	return s.graph.AnnotateByID(ctx, recipeID)
}

// SearchRecipes performs a fuzzy name search over public recipes, annotating
// each match.
func (s *Service) SearchRecipes(ctx context.Context, query string) ([]substitution.AnnotatedRecipe, error) {
	recipes, err := s.store.SearchPublicRecipesByName(ctx, query)
	if err != nil {
		return nil, err
	}

	annotated := make([]substitution.AnnotatedRecipe, 0, len(recipes))
	for _, recipe := range recipes {
		entry, err := s.graph.Annotate(ctx, recipe)
		if err != nil {
			return nil, err
		}
		annotated = append(annotated, entry)
	}
	return annotated, nil
}

// SearchIngredients is the fuzzy ingredient lookup used while building
// recipes.
func (s *Service) SearchIngredients(ctx context.Context, query string) ([]models.Ingredient, error) {
	return s.graph.SearchIngredients(ctx, query)
}

// IngredientReplacements returns the suggested substitutes for one
// ingredient.
func (s *Service) IngredientReplacements(ctx context.Context, ingredientID uint) ([]substitution.Suggestion, error) {
	return s.graph.ReplacementsFor(ctx, ingredientID)
}

// CreateRecipe creates a recipe for the named owner from raw submitted
// ingredient IDs, filtering malformed entries silently.
func (s *Service) CreateRecipe(ctx context.Context, name string, isPublic bool, rawIngredientIDs []string, ownerUsername string) (*models.Recipe, error) {
	owner, err := s.store.UserByUsername(ctx, ownerUsername)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}
	return s.composer.CreateWithIngredients(ctx, name, isPublic, composer.ParseIngredientIDs(rawIngredientIDs), owner)
}

// CloneIntoBook copies a recipe into the named owner's book as a new private
// recipe.
func (s *Service) CloneIntoBook(ctx context.Context, recipeID uint, ownerUsername string) (uint, error) {
	owner, err := s.store.UserByUsername(ctx, ownerUsername)
	if err != nil {
		return 0, fmt.Errorf("resolve owner: %w", err)
	}
	return s.composer.Clone(ctx, recipeID, owner)
}

// ReplaceIngredient applies one substitution to a recipe and arms the
// session's undo slot with the inverse action.
func (s *Service) ReplaceIngredient(ctx context.Context, sessionKey string, recipeID, toReplaceID, replaceWithID uint) error {
	if err := s.composer.ReplaceIngredient(ctx, recipeID, toReplaceID, replaceWithID); err != nil {
		return err
	}

	applied := undo.ReplaceIngredientAction{
		RecipeID:      recipeID,
		ToReplaceID:   toReplaceID,
		ReplaceWithID: replaceWithID,
	}
	s.ledger.Set(sessionKey, applied.Inverse())
	return nil
}

// Undo replays the session's pending action. ErrNoActiveUndo passes through
// untouched so callers can report it as a benign no-op.
func (s *Service) Undo(ctx context.Context, sessionKey string) error {
	err := s.ledger.ConsumeAndReplay(ctx, sessionKey, s.composer)
	if err != nil && !errors.Is(err, undo.ErrNoActiveUndo) {
		applog.Error(ctx, "undo replay failed", "error", err)
	}
	return err
}

// TickUndo registers one page navigation against the session's undo slot.
func (s *Service) TickUndo(sessionKey string) {
	s.ledger.Tick(sessionKey)
}

// ForgetUndo clears the session's undo slot, typically at logout.
func (s *Service) ForgetUndo(sessionKey string) {
	s.ledger.Forget(sessionKey)
}
