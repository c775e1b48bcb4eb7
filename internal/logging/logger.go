package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/shipstatic/internal/config"
)

// NewLogger creates a structured zerolog.Logger with the service name from
// the config attached to every line.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
