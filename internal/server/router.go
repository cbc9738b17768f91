// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/logging"
	"github.com/ayush/skillpath/backend/internal/middleware"
	"github.com/ayush/skillpath/backend/internal/paths"
	"github.com/ayush/skillpath/backend/internal/store"
)

// Deps are the collaborators the router wires together.
type Deps struct {
	Storage        store.Storage
	Cookies        *auth.CookieCodec
	Generator      paths.Generator
	Archive        paths.Archive // nil disables the archive
	Log            logging.Logger
	AllowedOrigins []string
	AccessLog      bool
}

func NewRouter(d Deps) http.Handler {
	sessions := d.Storage.Sessions()
	authHandler := auth.NewHandler(d.Storage, sessions, d.Cookies, d.Log)
	pathHandler := paths.NewHandler(d.Storage, d.Generator, d.Archive, d.Log)
	requireAuth := middleware.RequireAuth(sessions, d.Cookies, d.Storage)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if d.AccessLog {
		r.Use(chimw.RequestLogger(accessLog{log: d.Log}))
	}
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public except /api/user)
	r.Post("/api/register", authHandler.Register)
	r.Post("/api/login", authHandler.Login)
	r.Post("/api/logout", authHandler.Logout)
	r.With(requireAuth).Get("/api/user", authHandler.Me)

	// Learning path routes (protected)
	r.Route("/api/paths", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/generate", pathHandler.Generate)
		r.Post("/", pathHandler.Create)
		r.Get("/", pathHandler.List)
		r.Delete("/{id}", pathHandler.Delete)
		r.Get("/{id}/export", pathHandler.Export)
	})

	return r
}
