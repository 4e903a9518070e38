// Command mysteryagent serves the guess-the-secret-answer game agent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mysteryagent/internal/actions"
	"mysteryagent/internal/api"
	"mysteryagent/internal/buildinfo"
	"mysteryagent/internal/config"
	"mysteryagent/internal/dispatch"
	"mysteryagent/internal/game"
	"mysteryagent/internal/llm"
	"mysteryagent/internal/session"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run] so the full
// startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand; the flag
// package's package-level globals make run() impossible to call
// concurrently from tests, and the argument surface here is tiny.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	switch command {
	case "serve", "":
		return runServe(ctx, stdout, configPath)
	case "version":
		return runVersion(stdout)
	case "help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	_, err := fmt.Fprint(w, `mysteryagent - guess-the-secret-answer game agent

Usage:
  mysteryagent [serve]      start the API server (default)
  mysteryagent version      print build metadata
  mysteryagent help         show this help

Flags:
  -config <path>   config file (default: search ./config.yaml,
                   ~/.config/mysteryagent/config.yaml,
                   /etc/mysteryagent/config.yaml)

Environment:
  OPENROUTER_API_KEY    model API key (required to serve)
  OPENROUTER_MODEL      model override
  OPENROUTER_BASE_URL   API base URL override

A .env file in the working directory is loaded if present.
`)
	return err
}

func runVersion(w io.Writer) error {
	return json.NewEncoder(w).Encode(buildinfo.Info())
}

// runServe wires the whole agent together and blocks until a shutdown
// signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	// Secrets come from the environment; a local .env is a convenience
	// for development. Absence is not an error.
	_ = godotenv.Load()

	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting mysteryagent",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure now that the desired level is known.
	{
		level, _ := config.ParseLogLevel(cfg.LogLevel)
		logger = newLogger(stdout, level)
	}
	if cfgPath != "" {
		logger.Info("config loaded", "path", cfgPath, "port", cfg.Listen.Port, "model", cfg.OpenRouter.Model)
	} else {
		logger.Info("no config file found, using defaults", "port", cfg.Listen.Port, "model", cfg.OpenRouter.Model)
	}

	if cfg.OpenRouter.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is not set")
	}

	// --- Session store ---
	// SQLite-backed when a data directory is configured, so sessions
	// survive restarts. Otherwise in-memory and volatile.
	var store game.Store
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
		}
		dbPath := cfg.DataDir + "/mysteryagent.db"
		sqlStore, err := game.NewSQLiteStore(dbPath, cfg.Game.MaxLog)
		if err != nil {
			return fmt.Errorf("open session database %s: %w", dbPath, err)
		}
		defer sqlStore.Close()
		store = sqlStore
		logger.Info("session database opened", "path", dbPath)
	} else {
		store = game.NewMemStore(cfg.Game.MaxLog)
		logger.Info("using in-memory session store")
	}

	// --- Model client ---
	model := llm.NewOpenRouterClient(cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, logger)
	{
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := model.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("model API not reachable at startup", "error", err)
		} else {
			logger.Info("model API reachable", "model", cfg.OpenRouter.Model)
		}
	}

	// --- Agent core ---
	registry := actions.NewRegistry(model, logger)
	dispatcher := dispatch.New(model, registry, logger)
	controller := session.New(store, dispatcher, logger)

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, controller, cfg.Game.AllowedOrigins, logger)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Session expiry sweep ---
	// Idle sessions are removed by a ticker here in the composition
	// root; the store itself never sleeps.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.Expire(cfg.SessionTTL())
				if err != nil {
					logger.Error("session expiry sweep failed", "error", err)
				} else if removed > 0 {
					logger.Info("expired idle sessions", "count", removed)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML config. An explicit -config
// path must exist; otherwise the default search paths are tried and a
// complete miss falls back to built-in defaults (env still applies).
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}
