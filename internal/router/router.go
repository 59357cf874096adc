package router

import (
	"sheetsync-api/internal/handler"
	"sheetsync-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	CharacterHandler *handler.CharacterHandler
	ObjectHandler    *handler.ObjectHandler
	AdminHandler     *handler.AdminHandler
	AllowedOrigins   []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)

	// The tabletop client (FoundryVTT) runs on localhost:30000; extra
	// origins come from config.
	origins := append([]string{
		"http://localhost:30000",
		"http://127.0.0.1:30000",
	}, cfg.AllowedOrigins...)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// Legacy endpoint the FoundryVTT module pushes to.
	if cfg.CharacterHandler != nil {
		r.Post("/api/character/controls", cfg.CharacterHandler.UpdateControls)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.CharacterHandler != nil {
			r.Route("/characters/{game}/{name}", func(r chi.Router) {
				r.Get("/", cfg.CharacterHandler.GetCharacter)
				r.Delete("/", cfg.CharacterHandler.DeleteCharacter)

				r.Route("/objects", func(r chi.Router) {
					r.Get("/", cfg.CharacterHandler.ListObjects)
					r.Post("/", cfg.CharacterHandler.GrantObject)
					r.Put("/{object_id}", cfg.CharacterHandler.SetObjectQuantity)
					r.Delete("/{object_id}", cfg.CharacterHandler.RevokeObject)
				})
			})
		}

		if cfg.ObjectHandler != nil {
			r.Route("/objects", func(r chi.Router) {
				r.Post("/", cfg.ObjectHandler.CreateObject)
				r.Get("/{id}", cfg.ObjectHandler.GetObject)
				r.Put("/{id}", cfg.ObjectHandler.UpdateObject)
				r.Delete("/{id}", cfg.ObjectHandler.DeleteObject)
			})
		}

		if cfg.AdminHandler != nil {
			r.Get("/admin/stats", cfg.AdminHandler.GetStats)
		}
	})

	return r
}
