package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	configloader "github.com/ankitluthra/GyanEcho/external/config"
	transcriberimpl "github.com/ankitluthra/GyanEcho/external/transcriber"
	translatorimpl "github.com/ankitluthra/GyanEcho/external/translator"
	transportimpl "github.com/ankitluthra/GyanEcho/external/transport"
	"github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/ankitluthra/GyanEcho/internal/relay"
	"github.com/ankitluthra/GyanEcho/internal/translation"
	"github.com/samber/do/v2"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded",
		"env", cfg.Env,
		"transcriber", cfg.TranscriberBackend,
		"translator", cfg.TranslatorBackend,
		"languages", cfg.TargetLanguages)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)
	defer func() {
		slog.Info("shutdown: releasing dependencies")
		injector.Shutdown()
	}()

	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.LoadBackend()
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
	transcriberimpl.RegisterDI(injector)
	translatorimpl.RegisterDI(injector)
	translation.RegisterDI(injector)
	relay.RegisterDI(injector)
	transportimpl.RegisterServerDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	srv, err := do.Invoke[*transportimpl.Server](injector)
	if err != nil {
		slog.Error("failed to resolve relay server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		slog.Error("relay server failed", "error", err)
		return
	}
	slog.Info("shutting down")
}
