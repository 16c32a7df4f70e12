package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"urldigest/app/analyzer"
	"urldigest/app/api"
	"urldigest/app/cfg"
	"urldigest/app/database"
	"urldigest/app/scheduler"
	"urldigest/app/store"
	"urldigest/app/task"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Environment variables may be set directly; a missing .env is fine.
		slog.Debug("No .env file found")
	}

	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting URL Digest server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	settings, err := analyzer.LoadSettings(appCfg.AnalyzerSettingsFile)
	if err != nil {
		slog.Error("Failed to load analyzer settings", "file", appCfg.AnalyzerSettingsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Analyzer configured", "model", settings.Model, "max_tokens", settings.MaxTokens)

	registry := task.NewRegistry()
	bus := scheduler.NewBus()
	extractor := analyzer.NewExtractor(appCfg.AnthropicAPIKey, appCfg.UserAgent, appCfg.FetchTimeout, settings)

	sched := scheduler.New(registry, extractor, bus, appCfg.WorkerCount, appCfg.UserAgent)
	sched.Start()

	fileStore := store.NewFileStore(appCfg.ProjectDir)
	saver := store.NewSaver(registry, fileStore)
	resultRepo := database.NewResultRepository(db)

	autoSaver := store.NewAutoSaver(registry, saver, resultRepo, appCfg.AutoSave)
	go autoSaver.Run(sched.Subscribe())
	slog.Info("Auto-save observer started", "enabled", appCfg.AutoSave, "project_dir", appCfg.ProjectDir)

	handler := api.NewHandler(sched, saver, resultRepo)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Drain the worker pool; in-flight analyses are allowed to finish.
	sched.Stop()

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}
