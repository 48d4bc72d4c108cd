package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ekisa-team/scribe/internal/backend"
	"github.com/ekisa-team/scribe/internal/backend/whisper"
	"github.com/ekisa-team/scribe/internal/config"
	"github.com/ekisa-team/scribe/internal/env"
	"github.com/ekisa-team/scribe/internal/envvar"
	"github.com/ekisa-team/scribe/internal/logger"
	"github.com/ekisa-team/scribe/internal/model"
	httpserver "github.com/ekisa-team/scribe/internal/server/http"
	"github.com/ekisa-team/scribe/internal/service"
	"github.com/ekisa-team/scribe/internal/xfs"
)

func main() {
	_ = godotenv.Load()

	var (
		flagHTTPPort   = flag.Int("http-port", config.DefaultHTTPPort(), "HTTP port to listen on")
		flagConfigPath = flag.String("config", path.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
		flagSchemaPath = flag.String("schema", path.Join(config.DefaultConfigPath(), "scribe.v1.schema.json"), "Path to schema file")
	)
	flag.Parse()

	environment := env.FromEnv()

	slog.SetDefault(
		logger.New(environment,
			logger.WithLogToFile(true),
			logger.WithLogFile("logs/scribed.log"),
		),
	)

	cfg, err := config.LoadAndValidate(*flagConfigPath, *flagSchemaPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("Config loaded successfully", "config", *flagConfigPath, "schema", *flagSchemaPath)

	serverManager := backend.NewServerManager()
	defer serverManager.StopAll()

	whisperBin := cfg.Backend.WhisperBin
	if whisperBin == "" {
		whisperBin = config.DefaultWhisperBin
	}
	whisperBackend := whisper.NewBackend(whisperBin, serverManager)
	defer whisperBackend.Close()

	loader, err := model.NewWeightLoader(whisperBackend, resolveModelsPath(cfg), cfg.Backend)
	if err != nil {
		slog.Error("Failed to create model loader", "error", err)
		os.Exit(1)
	}

	registry := model.NewRegistry(cfg, loader)

	startupTiers := cfg.Tiers
	if _, err := config.NewWatcher(*flagConfigPath, *flagSchemaPath, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Error("Failed to reload config", "error", err)
			return
		}

		// Tier topology is fixed for the process lifetime; only the retry
		// policy retunes on reload.
		if !config.TiersEqual(startupTiers, cfg.Tiers) {
			slog.Warn("Tier configuration changed on disk; tiers are fixed until restart")
		}
		registry.ApplyRetryConfig(cfg.Retry)
		slog.Info("Retry policy updated from config")
	}); err != nil {
		slog.Error("Failed to create config watcher", "error", err)
		os.Exit(1)
	}

	transcriber := service.NewTranscriber(registry)

	port := cfg.Server.HTTPPort
	if port == 0 {
		port = *flagHTTPPort
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "http-port" {
			port = *flagHTTPPort
		}
	})

	srv := httpserver.NewServer(port, transcriber, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
}

// resolveModelsPath returns the path to the models directory.
// Precedence:
// 1. SCRIBE_MODELS_PATH environment variable.
// 2. ModelsDir field in the config.
// 3. Default models path.
func resolveModelsPath(cfg *config.Config) string {
	if p := os.Getenv(envvar.ScribeModelsPath); p != "" {
		return xfs.ExpandTilde(p)
	}
	if cfg.Storage.ModelsDir != "" {
		return xfs.ExpandTilde(cfg.Storage.ModelsDir)
	}
	return xfs.ExpandTilde(config.DefaultModelsPath())
}
