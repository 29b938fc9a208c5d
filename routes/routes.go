package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bracketops/bracket-console/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	allowedOrigin string,
	bracketHandler *handlers.BracketHandler,
	progressionHandler *handlers.ProgressionHandler,
	scoreEditHandler *handlers.ScoreEditHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		r.Get("/bracket", bracketHandler.GetSnapshot)
		r.Post("/bracket/refresh", bracketHandler.RefreshNow)
		r.Put("/bracket/auto-refresh", bracketHandler.SetAutoRefresh)

		r.Post("/advance", progressionHandler.AdvanceRound)
		r.Post("/complete", progressionHandler.CompleteTournament)
	})

	router.Route("/matches/{matchID}/edit", func(r chi.Router) {
		r.Post("/", scoreEditHandler.BeginEdit)
		r.Put("/", scoreEditHandler.SetDraftScore)
		r.Post("/submit", scoreEditHandler.SubmitEdit)
		r.Delete("/", scoreEditHandler.CancelEdit)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
