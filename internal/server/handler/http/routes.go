// Package http exposes the hosts session over a local JSON API.
package http

import (
	"net/http"

	"github.com/atinyakov/HostsBox/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API handler. Requests with a body must be JSON,
// every request is logged and only loopback clients are served.
//
// Routes (all under /api):
//
//	GET    /entries                 entries and selection
//	POST   /entries                 create entry
//	PUT    /entries/{id}/active     toggle entry
//	PUT    /entries/{id}/content    save entry content
//	DELETE /entries/{id}            delete entry
//	GET    /view                    current view
//	POST   /view/system|default     switch view
//	POST   /view/entries/{id}       open entry
//	POST   /default/edit            edit default
//	PUT    /default/buffer          replace edit buffer
//	POST   /default/save[?apply=true]
//	PUT    /selection/{id}, DELETE /selection/{id}, DELETE /selection
//	POST   /selection/delete[?confirm=true]
//	POST   /selection/activate|deactivate
//	GET    /preview
//	POST   /open-dir
func NewRouter(h *SessionHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.LoopbackOnly)

	r.Route("/api", func(r chi.Router) {
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Put("/{id}/active", h.SetActive)
			r.Put("/{id}/content", h.SaveContent)
			r.Delete("/{id}", h.DeleteEntry)
		})

		r.Get("/view", h.GetView)
		r.Post("/view/system", h.ViewSystem)
		r.Post("/view/default", h.ViewDefault)
		r.Post("/view/entries/{id}", h.ViewEntry)

		r.Post("/default/edit", h.EditDefault)
		r.Put("/default/buffer", h.SetBuffer)
		r.Post("/default/save", h.SaveDefault)

		r.Route("/selection", func(r chi.Router) {
			r.Delete("/", h.ClearSelection)
			r.Put("/{id}", h.Select)
			r.Delete("/{id}", h.Unselect)
			r.Post("/delete", h.DeleteSelected)
			r.Post("/activate", h.ActivateSelected)
			r.Post("/deactivate", h.DeactivateSelected)
		})

		r.Get("/preview", h.Preview)
		r.Post("/open-dir", h.OpenDir)
	})

	return r
}
