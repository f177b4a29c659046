package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/flexdir/internal/entryservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *entryservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/directories", h.ListDirectories)
	r.Route("/directories/{type}", func(r chi.Router) {
		r.Get("/entries", h.ListEntries)
		r.Post("/entries", h.CreateEntry)
		r.Get("/entries/{key}", h.GetEntry)
		r.Put("/entries/{key}", h.UpdateEntry)
		r.Delete("/entries/{key}", h.DeleteEntry)
		r.Post("/entries/{key}/media", h.UploadMedia)
		r.Get("/changes", h.ListChanges)
		r.Post("/reload", h.Reload)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
