package logger

import (
	"log/slog"
	"os"
)

// New returns the service-wide structured logger. Everything goes to stdout
// as JSON for the process runner to ship; only production drops debug lines,
// since local/dev/staging all want to see per-call pipeline decisions.
func New(appEnv string) *slog.Logger {
	level := slog.LevelDebug
	if appEnv == "production" {
		level = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "nexa-backend", "env", appEnv)
}
