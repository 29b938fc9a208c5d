package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bracketops/bracket-console/brackets"
	"github.com/bracketops/bracket-console/client"
	"github.com/bracketops/bracket-console/config"
	"github.com/bracketops/bracket-console/handlers"
	api "github.com/bracketops/bracket-console/routes"
	"github.com/bracketops/bracket-console/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Int("tournament_id", cfg.TournamentID),
		slog.Duration("refresh_interval", cfg.RefreshInterval))

	apiClient := client.New(client.Config{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Logger:  logger,
	})
	logger.Info("tournament service client initialized", slog.String("base_url", cfg.APIBaseURL))

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	refresher := services.NewRefreshController(apiClient, wsHub, cfg.TournamentID, cfg.RefreshInterval, logger)
	progression := services.NewProgression(apiClient, refresher, cfg.TournamentID, logger)
	scoreEditor := services.NewScoreEditor(apiClient, refresher, logger)
	logger.Info("services initialized")

	refresher.Start()
	defer refresher.Stop()

	bracketHandler := handlers.NewBracketHandler(refresher, cfg.TournamentID)
	progressionHandler := handlers.NewProgressionHandler(progression, cfg.TournamentID)
	scoreEditHandler := handlers.NewScoreEditHandler(scoreEditor)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, refresher, cfg.TournamentID, cfg.AllowedOrigin, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.AllowedOrigin, bracketHandler, progressionHandler, scoreEditHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		refresher.Stop()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
