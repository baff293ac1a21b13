package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/gijiroku/external/audio"
	configloader "github.com/foxseedlab/gijiroku/external/config"
	engineimpl "github.com/foxseedlab/gijiroku/external/engine"
	repositoryimpl "github.com/foxseedlab/gijiroku/external/repository"
	webhookimpl "github.com/foxseedlab/gijiroku/external/webhook"
	"github.com/foxseedlab/gijiroku/internal/config"
	"github.com/foxseedlab/gijiroku/internal/pipeline"
	"github.com/google/uuid"
	"github.com/samber/do/v2"
)

const resultPollInterval = 500 * time.Millisecond

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	if len(os.Args) < 2 {
		slog.Error("no input files given", "usage", "backend <audio-file>...")
		os.Exit(2)
	}

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	runFiles(injector, os.Args[1:])
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	engineimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	pipeline.RegisterDI(injector)

	return injector
}

func runFiles(injector do.Injector, files []string) {
	controller, err := do.Invoke[*pipeline.Controller](injector)
	if err != nil {
		slog.Error("failed to resolve pipeline controller", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	for _, path := range files {
		if ctx.Err() != nil {
			slog.Info("shutting down")
			break
		}
		if err := runFile(ctx, controller, path); err != nil {
			slog.Error("run failed", "file", path, "error", err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func runFile(ctx context.Context, controller *pipeline.Controller, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	slog.Info("run started", "run_id", runID, "file", path)
	if err := controller.Start(ctx, runID, filepath.Base(path), data); err != nil {
		return err
	}

	// Cancel the run instead of abandoning it when a signal arrives.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = controller.Cancel(runID)
		case <-watchDone:
		}
	}()

	var result *pipeline.RunResult
	for {
		result, err = controller.GetResult(context.WithoutCancel(ctx), runID)
		if err != nil {
			return err
		}
		if result.Run.State.Terminal() {
			break
		}
		slog.Debug("run in progress", "run_id", runID, "state", result.Run.State, "progress", result.Run.Progress)
		time.Sleep(resultPollInterval)
	}
	slog.Info("run finished",
		"run_id", runID,
		"state", result.Run.State,
		"degraded", result.Run.Degraded,
		"segments", len(result.Transcript.Segments))

	out, err := json.MarshalIndent(result.Transcript.Serialize(), "", "  ")
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}
