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

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/stash/internal/config"
	"github.com/MrJamesThe3rd/stash/internal/database"
	"github.com/MrJamesThe3rd/stash/internal/goal"
	goalStore "github.com/MrJamesThe3rd/stash/internal/goal/store"
	stashHttp "github.com/MrJamesThe3rd/stash/internal/http"
	goalHandler "github.com/MrJamesThe3rd/stash/internal/http/goal"
	importHandler "github.com/MrJamesThe3rd/stash/internal/http/importcsv"
	taggingHandler "github.com/MrJamesThe3rd/stash/internal/http/tagging"
	txHandler "github.com/MrJamesThe3rd/stash/internal/http/transaction"
	"github.com/MrJamesThe3rd/stash/internal/importer"
	"github.com/MrJamesThe3rd/stash/internal/tagging"
	taggingStore "github.com/MrJamesThe3rd/stash/internal/tagging/store"
	"github.com/MrJamesThe3rd/stash/internal/transaction"
	txStore "github.com/MrJamesThe3rd/stash/internal/transaction/store"
	"github.com/MrJamesThe3rd/stash/internal/undo"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(cfg.ConnectionString()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var (
		goalService = goal.NewService(
			goalStore.New(db),
			goal.WithLogger(logger),
			goal.WithDefaultColor(cfg.Goals.DefaultColor),
		)
		transactionService = transaction.NewService(txStore.New(db))
		taggingService     = tagging.NewService(taggingStore.New(db))
		importService      = importer.NewService()
		history            = undo.NewManager(cfg.Goals.UndoDepth, logger)
		recalculator       = goal.NewRecalculator(goalService, history)
	)

	var (
		goalH        = goalHandler.NewHandler(goalService, history, recalculator)
		transactionH = txHandler.NewHandler(transactionService)
		importH      = importHandler.NewHandler(importService, transactionService, taggingService, recalculator)
		taggingH     = taggingHandler.NewHandler(taggingService)
	)

	router := stashHttp.New(stashHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthSecret:     cfg.Auth.Secret,
	}, goalH, transactionH, importH, taggingH)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr, "app", cfg.App.Name)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
