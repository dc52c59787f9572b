package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lolostheman/bettermc/internal/api"
	"github.com/lolostheman/bettermc/internal/auth"
	"github.com/lolostheman/bettermc/internal/game"
	"github.com/lolostheman/bettermc/internal/journal"
	"github.com/lolostheman/bettermc/internal/monitor"
)

type Server struct {
	router chi.Router
}

func New(authSvc *auth.Service, engine *game.Engine, mon *monitor.Monitor, j *journal.Journal, hub *api.Hub) *Server {
	authHandler := api.NewAuthHandler(authSvc)
	statusHandler := api.NewStatusHandler(engine, mon, j)
	eventsHandler := api.NewEventsHandler(hub)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(api.AuthMiddleware(authSvc))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)

			r.Get("/status", statusHandler.Status)
			r.Get("/players", statusHandler.Players)
			r.Get("/rounds", statusHandler.Rounds)
			r.Get("/events", statusHandler.Events)
		})

		// WebSocket route (browser clients cannot set headers here)
		r.Get("/events/live", eventsHandler.Live)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{router: r}
}

func (s *Server) Router() chi.Router {
	return s.router
}
