package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"greenplate/internal/composer"
	applog "greenplate/internal/log"
	"greenplate/internal/store"
	"greenplate/internal/substitution"
	"greenplate/models"
)

type recipeCreateRequest struct {
	Name          string   `json:"name"`
	Public        bool     `json:"public"`
	IngredientIDs []string `json:"ingredient_ids"`
}

type ingredientListRequest struct {
	IngredientIDs []string `json:"ingredient_ids"`
}

type substitutionRequest struct {
	ToReplaceID   uint `json:"to_replace_id"`
	ReplaceWithID uint `json:"replace_with_id"`
}

type visibilityRequest struct {
	Public bool `json:"public"`
}

type annotatedRecipeResponse struct {
	Recipe      models.Recipe                      `json:"recipe"`
	Ingredients []substitution.AnnotatedIngredient `json:"ingredients"`
	Score       *float64                           `json:"score"`
}

func projectAnnotatedRecipe(annotated substitution.AnnotatedRecipe) annotatedRecipeResponse {
	resp := annotatedRecipeResponse{
		Recipe:      annotated.Recipe,
		Ingredients: annotated.Ingredients,
	}
	if value, ok := substitution.Score(annotated); ok {
		resp.Score = &value
	}
	return resp
}

// RecipesResource handles REST-style interactions for recipes.
func RecipesResource(w http.ResponseWriter, r *http.Request) {
	if services == nil {
		applog.Debug(r.Context(), "recipe request without services")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "recipe request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/recipes")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			searchRecipes(w, r)
		case http.MethodPost:
			createRecipe(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	recipeID := uint(idValue)

	if len(segments) > 1 {
		switch segments[1] {
		case "clone":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			cloneRecipe(w, r, recipeID, userID)
		case "ingredients":
			switch r.Method {
			case http.MethodPut:
				replaceIngredientList(w, r, recipeID, userID)
			case http.MethodPatch:
				substituteIngredient(w, r, recipeID, userID)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case "visibility":
			if r.Method != http.MethodPut {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			setRecipeVisibility(w, r, recipeID, userID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, recipeID, userID)
	case http.MethodDelete:
		deleteRecipe(w, r, recipeID, userID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func searchRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	results, err := services.SearchRecipes(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to search recipes", "error", err, "query", query)
		writeJSONError(w, http.StatusInternalServerError, "unable to search recipes")
		return
	}

	responses := make([]annotatedRecipeResponse, 0, len(results))
	for _, annotated := range results {
		responses = append(responses, projectAnnotatedRecipe(annotated))
	}
	writeJSON(w, http.StatusOK, responses)
}

func createRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username, ok := currentUsername(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload recipeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	recipe, err := services.CreateRecipe(ctx, payload.Name, payload.Public, payload.IngredientIDs, username)
	if err != nil {
		switch {
		case errors.Is(err, composer.ErrDuplicateRecipeName):
			writeJSONError(w, http.StatusConflict, "A recipe with that name already exists.")
		case errors.Is(err, store.ErrInvalidReference):
			writeJSONError(w, http.StatusBadRequest, "recipe name is required")
		default:
			applog.Error(ctx, "failed to create recipe", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to create recipe")
		}
		return
	}

	annotated, err := services.GetRecipe(ctx, recipe.ID)
	if err != nil {
		applog.Error(ctx, "failed to reload recipe after create", "error", err, "id", recipe.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load created recipe")
		return
	}
	writeJSON(w, http.StatusCreated, projectAnnotatedRecipe(annotated))
}

func showRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	annotated, err := services.GetRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			applog.Debug(ctx, "recipe not found", "id", recipeID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	if !recipeVisibleTo(annotated.Recipe, userID) {
		applog.Debug(ctx, "recipe access denied", "id", recipeID, "user", userID)
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, projectAnnotatedRecipe(annotated))
}

func cloneRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	source, err := services.GetRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			applog.Debug(ctx, "clone failed: recipe not found", "id", recipeID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe for clone", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}
	if !recipeVisibleTo(source.Recipe, userID) {
		applog.Debug(ctx, "clone denied: recipe not accessible", "id", recipeID, "user", userID)
		http.NotFound(w, r)
		return
	}

	username, ok := currentUsername(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	cloneID, err := services.CloneIntoBook(ctx, recipeID, username)
	if err != nil {
		if errors.Is(err, composer.ErrDuplicateRecipeName) {
			writeJSONError(w, http.StatusConflict, "A recipe with that name already exists in your book.")
			return
		}
		applog.Error(ctx, "failed to clone recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to clone recipe")
		return
	}

	annotated, err := services.GetRecipe(ctx, cloneID)
	if err != nil {
		applog.Error(ctx, "failed to load cloned recipe", "error", err, "id", cloneID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load cloned recipe")
		return
	}
	writeJSON(w, http.StatusCreated, projectAnnotatedRecipe(annotated))
}

func replaceIngredientList(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	if !ownsRecipe(w, r, recipeID, userID) {
		return
	}

	var payload ingredientListRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient list payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := recipeComposer.ReplaceIngredientList(ctx, recipeID, composer.ParseIngredientIDs(payload.IngredientIDs)); err != nil {
		applog.Error(ctx, "failed to replace ingredient list", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to update ingredients")
		return
	}
	respondWithRecipe(w, r, recipeID)
}

func substituteIngredient(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	if !ownsRecipe(w, r, recipeID, userID) {
		return
	}

	var payload substitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid substitution payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.ToReplaceID == 0 || payload.ReplaceWithID == 0 {
		writeJSONError(w, http.StatusBadRequest, "to_replace_id and replace_with_id are required")
		return
	}

	if err := services.ReplaceIngredient(ctx, undoScope(r), recipeID, payload.ToReplaceID, payload.ReplaceWithID); err != nil {
		applog.Error(ctx, "failed to substitute ingredient", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to substitute ingredient")
		return
	}
	respondWithRecipe(w, r, recipeID)
}

func setRecipeVisibility(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	if !ownsRecipe(w, r, recipeID, userID) {
		return
	}

	var payload visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid visibility payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := recipeComposer.TogglePublic(ctx, recipeID, payload.Public); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to set recipe visibility", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to update visibility")
		return
	}
	respondWithRecipe(w, r, recipeID)
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	if err := recipeComposer.DeleteByOwner(ctx, recipeID, userID); err != nil {
		applog.Error(ctx, "failed to delete recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownsRecipe loads the recipe and verifies ownership, writing the failure
// response itself. Denied callers see a 404, not a 403, so private recipe IDs
// stay unguessable.
func ownsRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) bool {
	ctx := r.Context()
	recipe, err := dataStore.RecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			applog.Debug(ctx, "recipe not found", "id", recipeID)
			http.NotFound(w, r)
			return false
		}
		applog.Error(ctx, "failed to load recipe for ownership check", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return false
	}
	if recipe.OwnerID == nil || *recipe.OwnerID != userID {
		applog.Debug(ctx, "recipe edit denied for non-owner", "id", recipeID, "user", userID)
		http.NotFound(w, r)
		return false
	}
	return true
}

func recipeVisibleTo(recipe models.Recipe, userID uint) bool {
	if recipe.IsPublic {
		return true
	}
	return recipe.OwnerID != nil && *recipe.OwnerID == userID
}

func respondWithRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	annotated, err := services.GetRecipe(r.Context(), recipeID)
	if err != nil {
		applog.Error(r.Context(), "failed to reload recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load updated recipe")
		return
	}
	writeJSON(w, http.StatusOK, projectAnnotatedRecipe(annotated))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
