package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wikivault/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Links.
	r.Get("/resolve", h.Resolve)
	r.Get("/complete", h.Complete)
	r.Get("/links/*", h.CheckLinks)
	r.Get("/root", h.DetectRoot)

	// Vaults.
	r.Get("/vaults", h.ListVaults)
	r.Get("/vaults/debug", h.DescribeVaults)
	r.Post("/vaults/reload", h.ReloadVaults)

	// Periodic notes.
	r.Get("/periodic/{vault}/{period}", h.FindPeriodic)
	r.Post("/periodic/{vault}/{period}", h.CreatePeriodic)
	r.Get("/periodic/{period}", h.FindPeriodic)
	r.Post("/periodic/{period}", h.CreatePeriodic)
	r.Get("/format/{period}", h.Format)

	r.Post("/cache/invalidate", h.InvalidateCache)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
