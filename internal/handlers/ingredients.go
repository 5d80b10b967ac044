package handlers

import (
	"net/http"
	"strconv"
	"strings"

	applog "greenplate/internal/log"
)

// IngredientsResource handles ingredient search and substitution lookups.
func IngredientsResource(w http.ResponseWriter, r *http.Request) {
	if services == nil {
		applog.Debug(r.Context(), "ingredient request without services")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/ingredients")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method == http.MethodGet {
			searchIngredients(w, r)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}

	if len(segments) == 2 && segments[1] == "replacements" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		listReplacements(w, r, uint(idValue))
		return
	}

	http.NotFound(w, r)
}

func searchIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")

	results, err := services.SearchIngredients(ctx, query)
	if err != nil {
		applog.Error(ctx, "failed to search ingredients", "error", err, "query", query)
		writeJSONError(w, http.StatusInternalServerError, "unable to search ingredients")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func listReplacements(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()

	suggestions, err := services.IngredientReplacements(ctx, ingredientID)
	if err != nil {
		applog.Error(ctx, "failed to load replacements", "error", err, "ingredientID", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load replacements")
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}
