package handlers

import (
	"errors"
	"net/http"

	applog "greenplate/internal/log"
	"greenplate/internal/undo"
)

// Book returns the caller's recipe book with a current ethical score beside
// every recipe.
func Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if services == nil || dataStore == nil {
		applog.Debug(r.Context(), "book request without services")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	ctx := r.Context()
	userID, ok := currentUserID(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := dataStore.UserByID(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to load user for book", "error", err, "userID", userID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe book")
		return
	}
	if user.RecipeBookID == nil {
		applog.Debug(ctx, "user has no recipe book", "userID", userID)
		writeJSONError(w, http.StatusInternalServerError, "recipe book missing")
		return
	}

	scored, err := services.ListWithScores(ctx, *user.RecipeBookID)
	if err != nil {
		applog.Error(ctx, "failed to list recipe book", "error", err, "bookID", *user.RecipeBookID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe book")
		return
	}
	writeJSON(w, http.StatusOK, scored)
}

type undoResponse struct {
	Status string `json:"status"`
}

// Undo replays the session's pending substitution reversal. An empty undo
// slot is a benign no-op and answers 200, distinct from a replay that
// actually failed.
func Undo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if services == nil {
		applog.Debug(r.Context(), "undo request without services")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	ctx := r.Context()
	scope := undoScope(r)
	if scope == "" {
		writeJSON(w, http.StatusOK, undoResponse{Status: "nothing to undo"})
		return
	}

	if err := services.Undo(ctx, scope); err != nil {
		if errors.Is(err, undo.ErrNoActiveUndo) {
			writeJSON(w, http.StatusOK, undoResponse{Status: "nothing to undo"})
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "unable to undo last substitution")
		return
	}
	writeJSON(w, http.StatusOK, undoResponse{Status: "ok"})
}
