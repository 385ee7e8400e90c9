// Package main is the entry point for the SMTP test server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/smtp-test-server/internal/config"
	"github.com/shineum/smtp-test-server/internal/email"
	"github.com/shineum/smtp-test-server/internal/sink"
	"github.com/shineum/smtp-test-server/internal/sink/stdout"
	"github.com/shineum/smtp-test-server/internal/smtp"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	showHeaders := flag.Bool("headers", false, "print every decoded header of received emails")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging.Level)

	addr, err := cfg.Address()
	if err != nil {
		slog.Error("invalid listen address", "listen", cfg.SMTP.Listen, "error", err)
		os.Exit(1)
	}

	server, err := smtp.StartWithConfig(addr, cfg.SMTP.Strict, smtp.WithLogger(slog.Default()))
	if err != nil {
		slog.Error("failed to start server", "listen", cfg.SMTP.Listen, "error", err)
		os.Exit(1)
	}

	var opts []stdout.Option
	if *showHeaders {
		opts = append(opts, stdout.WithHeaders())
	}
	out := stdout.New(opts...)

	slog.Info("starting smtp-test-server",
		"listen", server.Addr().String(),
		"strict", cfg.SMTP.Strict,
		"auth_enabled", addr.HasCredentials,
		"sink", out.Name(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	run(ctx, server, out)

	if err := server.Close(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("smtp-test-server stopped")
}

// run hands every received email to out until ctx is cancelled. Failed
// sessions are logged and skipped.
func run(ctx context.Context, server *smtp.Server, out sink.Sink) {
	for msg, err := range server.TryStream(ctx) {
		if err != nil {
			logSessionError(err)
			continue
		}
		if err := out.Deliver(ctx, msg); err != nil {
			slog.Error("failed to deliver email", "sink", out.Name(), "error", err)
		}
	}
}

func logSessionError(err error) {
	var acceptErr *smtp.AcceptError
	switch {
	case errors.As(err, &acceptErr):
		slog.Error("accept failed", "error", err)
	case errors.Is(err, email.ErrConversion):
		slog.Warn("rejected email", "error", err)
	default:
		slog.Warn("session failed", "error", err)
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output on stderr,
// leaving stdout to the printed emails.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
