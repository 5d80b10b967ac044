package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"greenplate/internal/book"
	"greenplate/internal/composer"
	applog "greenplate/internal/log"
	"greenplate/internal/store"
	"greenplate/internal/substitution"
	"greenplate/internal/undo"
	"greenplate/models"
)

const (
	sessionAuthenticatedKey = "auth:authenticated"
	sessionUserIDKey        = "auth:user:id"
	sessionUsernameKey      = "auth:user:name"
	sessionUndoScopeKey     = "undo:scope"
)

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
	dataStore      *store.Store
	recipeComposer *composer.Composer
	services       *book.Service
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB) {
	sessionManager = sm
	database = db
	dataStore = nil
	recipeComposer = nil
	services = nil
	if db != nil {
		dataStore = store.New(db)
		recipeComposer = composer.New(dataStore)
		services = book.New(dataStore, substitution.NewGraph(dataStore), recipeComposer, undo.NewLedger())
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Signup processes new registrations. Each account gets its own recipe book,
// created in the same transaction as the user row.
func Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || dataStore == nil {
		applog.Debug(r.Context(), "registration dependencies unavailable", "hasSession", sessionManager != nil, "hasStore", dataStore != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "registration not available")
		return
	}

	var payload credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid signup payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" {
		writeJSONError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(payload.Password) < 8 {
		writeJSONError(w, http.StatusBadRequest, "password must be at least 8 characters long")
		return
	}

	user, err := createUser(r, username, payload.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			applog.Debug(r.Context(), "signup attempted with existing username", "username", username)
			writeJSONError(w, http.StatusConflict, "Username is already in use.")
			return
		}
		applog.Error(r.Context(), "failed to create user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create account")
		return
	}

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session after signup", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to sign in after registration")
		return
	}

	applog.Debug(r.Context(), "signup completed", "userID", user.ID)
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

// Login processes sign-in submissions. Failures stay deliberately vague so
// usernames cannot be probed.
func Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || dataStore == nil {
		applog.Debug(r.Context(), "authentication dependencies unavailable", "hasSession", sessionManager != nil, "hasStore", dataStore != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	}

	var payload credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid login payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	username := strings.TrimSpace(payload.Username)
	if username == "" || payload.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := dataStore.UserByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			applog.Error(r.Context(), "failed to load user during login", "error", err)
		}
		writeJSONError(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		applog.Debug(r.Context(), "password mismatch during login", "username", username)
		writeJSONError(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to sign in")
		return
	}

	applog.Debug(r.Context(), "login succeeded", "userID", user.ID)
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

// Logout destroys the current session and drops its pending undo.
func Logout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if services != nil {
		if scope := undoScope(r); scope != "" {
			services.ForgetUndo(scope)
		}
	}
	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func createUser(r *http.Request, username, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashed),
	}

	ctx := r.Context()
	err = dataStore.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		recipeBook := &models.RecipeBook{OwnerID: user.ID}
		if err := tx.CreateRecipeBook(ctx, recipeBook); err != nil {
			return err
		}
		if err := tx.SetUserRecipeBook(ctx, user.ID, recipeBook.ID); err != nil {
			return err
		}
		user.RecipeBookID = &recipeBook.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func establishSession(r *http.Request, user *models.User) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionAuthenticatedKey, true)
	sessionManager.Put(r.Context(), sessionUserIDKey, int(user.ID))
	sessionManager.Put(r.Context(), sessionUsernameKey, user.Username)
	sessionManager.Put(r.Context(), sessionUndoScopeKey, newUndoScope())
	return nil
}

// newUndoScope mints the key the undo ledger is partitioned by. A fresh key
// per login means a new session never inherits another session's pending undo.
func newUndoScope() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// RequireAuthentication ensures the user has an active session before
// accessing the resource.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActiveSession(r) {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TickNavigation registers one page navigation against the session's undo
// slot. Mutating requests do not age the slot; only reads count as
// navigation.
func TickNavigation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && services != nil {
			if scope := undoScope(r); scope != "" {
				services.TickUndo(scope)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ActiveSession returns true when the current request has an authenticated session.
func ActiveSession(r *http.Request) bool {
	if sessionManager == nil {
		return false
	}
	return sessionManager.GetBool(r.Context(), sessionAuthenticatedKey) && sessionManager.GetInt(r.Context(), sessionUserIDKey) > 0
}

func currentUserID(r *http.Request) (uint, bool) {
	if sessionManager == nil {
		return 0, false
	}
	id := sessionManager.GetInt(r.Context(), sessionUserIDKey)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func currentUsername(r *http.Request) (string, bool) {
	if sessionManager == nil {
		return "", false
	}
	name := sessionManager.GetString(r.Context(), sessionUsernameKey)
	return name, name != ""
}

func undoScope(r *http.Request) string {
	if sessionManager == nil {
		return ""
	}
	return sessionManager.GetString(r.Context(), sessionUndoScopeKey)
}
