package logger

import (
	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/config"
)

// New creates a logger from application configuration
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewLoggerBuilder().WithConfig(cfg).Build()
}
