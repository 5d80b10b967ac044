package server

import (
	"context"
	"net/http"

	"greenplate/internal/handlers"
	applog "greenplate/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	mux.HandleFunc("/signup", handlers.Signup)
	mux.HandleFunc("/login", handlers.Login)
	mux.HandleFunc("/logout", handlers.Logout)

	// Navigational reads tick the undo TTL; see handlers.TickNavigation.
	browsing := func(h http.HandlerFunc) http.Handler {
		return handlers.RequireAuthentication(handlers.TickNavigation(h))
	}
	mux.Handle("/api/book", browsing(handlers.Book))
	mux.Handle("/api/recipes", browsing(handlers.RecipesResource))
	mux.Handle("/api/recipes/", browsing(handlers.RecipesResource))
	mux.Handle("/api/ingredients", handlers.RequireAuthentication(http.HandlerFunc(handlers.IngredientsResource)))
	mux.Handle("/api/ingredients/", handlers.RequireAuthentication(http.HandlerFunc(handlers.IngredientsResource)))
	mux.Handle("/api/undo", handlers.RequireAuthentication(http.HandlerFunc(handlers.Undo)))
	applog.Debug(context.Background(), "routes registered")
	return mux
}
