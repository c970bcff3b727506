package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/registry"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *registry.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Modes CRUD.
	r.Get("/modes", h.ListModes)
	r.Post("/modes", h.CreateMode)
	r.Get("/modes/*", h.GetMode)
	r.Put("/modes/*", h.UpdateMode)
	r.Delete("/modes/*", h.DeleteMode)

	// Search.
	r.Get("/search", h.Search)

	// Tools.
	r.Get("/tools", h.Tools)
	r.Get("/tools/{tool}/modes", h.ModesForTool)

	// Graph.
	r.Get("/graph", h.Graph)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
