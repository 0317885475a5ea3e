package logger

import (
	"go.uber.org/zap"
)

// New builds the production zap logger used across the query engine.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// NewDevelopment builds a human-friendly logger for local debugging and tests.
func NewDevelopment() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
