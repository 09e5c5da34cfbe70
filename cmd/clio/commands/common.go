// Package commands implements the clio CLI subcommands.
package commands

import (
	"log/slog"
	"os"

	"github.com/cliosearch/clio"
	"github.com/joho/godotenv"
)

// loadEnv loads environment variables from the given file. A missing file
// is fine; explicit environment variables always win.
func loadEnv(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// newLogger builds the CLI logger. Structured JSON goes to stderr so stdout
// stays clean for command output.
func newLogger() *clio.Logger {
	return clio.NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
