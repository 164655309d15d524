// BoardView - Personal Advisory Board Bot
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/boardview-ai/boardview/internal/advisors"
	"github.com/boardview-ai/boardview/internal/api"
	"github.com/boardview-ai/boardview/internal/config"
	"github.com/boardview-ai/boardview/internal/domain"
	"github.com/boardview-ai/boardview/internal/middleware"
	"github.com/boardview-ai/boardview/internal/session"
	"github.com/boardview-ai/boardview/internal/store"
	"github.com/boardview-ai/boardview/internal/transport"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.GeminiModel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	gen, err := advisors.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GenerationTimeout)
	if err != nil {
		slog.Error("Failed to initialize generator", "error", err)
		os.Exit(1)
	}
	slog.Info("Generator initialized", "model", cfg.GeminiModel)

	// Initialize the chat transport first: the engine delivers its effects
	// through it.
	tg, err := transport.NewTelegram(cfg.BotToken, cfg.OperatorChatID, cfg.PollTimeout)
	if err != nil {
		slog.Error("Failed to initialize Telegram transport", "error", err)
		os.Exit(1)
	}

	sessions := session.NewMemoryStore()
	dispatcher := session.NewDispatcher()
	defer dispatcher.Close()

	engine := session.NewEngine(sessions, repo, gen, tg, cfg.ConsultationLimit)
	tg.Attach(engine, dispatcher)

	// Initialize handlers.
	handler := api.NewHandler(repo, gen, cfg.AdminAPIToken)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Start the polling loop. A transport conflict means another instance
	// already owns the bot token; exit non-zero so the supervisor notices.
	pollErr := make(chan error, 1)
	go func() {
		pollErr <- tg.Run(ctx)
	}()
	slog.Info("Telegram polling started")

	select {
	case <-ctx.Done():
	case err := <-pollErr:
		if errors.Is(err, domain.ErrTransportConflict) {
			slog.Error("Another bot instance is already polling, shutting down", "error", err)
			os.Exit(1)
		}
		if err != nil {
			slog.Error("Polling stopped", "error", err)
			os.Exit(1)
		}
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
