// Package server is the HTTP surface the display host polls for frames.
package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/ivlev/keyringframes/internal/logger"
)

// NewRouter mounts the handler routes. Metrics may be nil.
func NewRouter(h *Handler, l *log.Logger, m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(l))
	if m != nil {
		r.Use(RequestMiddleware(m))
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/healthz", h.Health)
	r.Get("/pair.png", h.Pair)
	r.Route("/frames", func(r chi.Router) {
		r.Post("/", h.Generate)
		r.Get("/", h.Manifest)
		r.Delete("/", h.Delete)
		r.Get("/{index}.png", h.Frame)
	})
	return r
}
