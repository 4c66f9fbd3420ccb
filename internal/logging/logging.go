// Package logging holds the process-wide structured logger.
//
// Output goes to stderr because stdout carries the JSON-RPC stream.
package logging

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Options selects the level ("debug", "info", "warn", "error"; anything
// else is info) and the output format.
type Options struct {
	Level string
	JSON  bool
}

var def atomic.Pointer[slog.Logger]

func init() {
	cfg := &slog.HandlerOptions{Level: slog.LevelInfo}
	def.Store(slog.New(slog.NewTextHandler(os.Stderr, cfg)))
}

// Configure replaces the process logger with a stderr handler built from opts.
func Configure(opts Options) {
	cfg := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(os.Stderr, cfg)
	} else {
		h = slog.NewTextHandler(os.Stderr, cfg)
	}
	def.Store(slog.New(h))
}

// Set replaces the logger. Passing nil restores the stderr text logger.
func Set(l *slog.Logger) {
	if l == nil {
		Configure(Options{})
		return
	}
	def.Store(l)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the current process logger.
func L() *slog.Logger {
	return def.Load()
}

// InitFromEnv configures the logger from IMAGE_NODES_LOG_LEVEL and
// IMAGE_NODES_LOG_JSON.
func InitFromEnv() {
	lvl := os.Getenv("IMAGE_NODES_LOG_LEVEL")
	json := false
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("IMAGE_NODES_LOG_JSON"))); err == nil {
		json = b
	}
	Configure(Options{Level: lvl, JSON: json})
}
