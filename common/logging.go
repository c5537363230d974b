package common

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// LoggingOpts configures the process-wide structured logger.
type LoggingOpts struct {
	// Log debug messages
	Debug bool

	// Log in JSON format
	JSON bool

	// Service name, added as a "service" attribute to all entries
	Service string

	// Version, added as a "version" attribute to all entries
	Version string
}

// SetupLogger creates a slog logger according to opts. Text output goes
// through tint for readable development logs, JSON output uses the
// standard JSON handler.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}

	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}
