package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	captureimpl "github.com/ankitluthra/GyanEcho/external/capture"
	configloader "github.com/ankitluthra/GyanEcho/external/config"
	transportimpl "github.com/ankitluthra/GyanEcho/external/transport"
	"github.com/ankitluthra/GyanEcho/internal/capture"
	"github.com/ankitluthra/GyanEcho/internal/config"
	"github.com/ankitluthra/GyanEcho/internal/transcript"
	"github.com/ankitluthra/GyanEcho/internal/transport"
	"github.com/samber/do/v2"
)

const connectTimeout = 20 * time.Second

func main() {
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "server_url", cfg.ServerURL)

	injector := setupDI(cfg)
	os.Exit(run(cfg, injector))
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.LoadClient()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Logs go to stderr; stdout carries the transcript.
func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	captureimpl.RegisterDI(injector)
	transportimpl.RegisterClientDI(injector)

	return injector
}

func run(cfg *config.Config, injector do.Injector) int {
	device, err := do.Invoke[capture.Device](injector)
	if err != nil {
		slog.Error("failed to resolve capture device", "error", err)
		return 1
	}
	dialer, err := do.Invoke[transport.Dialer](injector)
	if err != nil {
		slog.Error("failed to resolve dialer", "error", err)
		return 1
	}

	startedAt := time.Now()
	assembler := transcript.NewAssembler(cfg.TargetLanguages)
	session := transport.NewSession(transport.SessionConfig{
		URL:                  cfg.ServerURL,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, dialer, func(data []byte) {
		msg, err := assembler.ApplyRaw(data)
		if err != nil {
			slog.Warn("failed to parse message", "error", err)
			return
		}
		history := assembler.History()
		fmt.Println(transcript.FormatEntry(history[len(history)-1], startedAt))
		if !msg.IsError() {
			fmt.Println(transcript.Render(assembler.Snapshot(), assembler.Languages()))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		slog.Error("failed to start transport session", "error", err)
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("transport close failed", "error", err)
		}
	}()

	fatal := make(chan error, 1)
	loop := capture.NewLoop(capture.LoopConfig{
		ChunkInterval: cfg.ChunkInterval,
		FlushInterval: cfg.FlushInterval,
		MinChunkBytes: cfg.MinChunkBytes,
		LanguageHint:  cfg.LanguageHint,
	}, device, session, func(err error) {
		if errors.Is(err, capture.ErrDeviceUnavailable) {
			select {
			case fatal <- err:
			default:
			}
			return
		}
		slog.Warn("capture error", "error", err)
	})

	if err := waitOpen(ctx, session); err != nil {
		slog.Error("transport not ready", "error", err)
		return 1
	}
	if err := loop.Start(ctx); err != nil {
		reportStartError(err)
		return 1
	}
	defer func() {
		if err := loop.Stop(); err != nil {
			slog.Warn("capture stop reported errors", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return 0
		case err := <-fatal:
			reportStartError(err)
			return 1
		case <-session.Done():
			slog.Error("transport closed; giving up", "reconnect_attempts", session.ReconnectAttempts())
			return 1
		case <-loop.Ended():
			slog.Info("capture input finished")
			if err := loop.Stop(); err != nil {
				slog.Warn("capture stop reported errors", "error", err)
			}
			fmt.Println(transcript.FormatHistory(assembler.History(), startedAt))
			return 0
		}
	}
}

// waitOpen blocks until the session is open, riding out reconnect attempts.
func waitOpen(ctx context.Context, session *transport.Session) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for session.State() != transport.StateOpen {
		select {
		case <-ctx.Done():
			return transport.ErrNotConnected
		case <-session.Done():
			return transport.ErrClosed
		case <-ticker.C:
		}
	}
	return nil
}

func reportStartError(err error) {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		slog.Error("microphone permission denied", "error", err)
	case errors.Is(err, capture.ErrDeviceNotFound):
		slog.Error("no capture device found", "error", err)
	case errors.Is(err, capture.ErrUnsupported):
		slog.Error("audio capture is not supported here", "error", err)
	case errors.Is(err, transport.ErrNotConnected):
		slog.Error("not connected to the relay server", "error", err)
	default:
		slog.Error("failed to start capture", "error", err)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
}
