// Package logging builds the zap logger the CLI hands to the store,
// target, and harness. The analysis packages stay log-free.
package logging

import (
	"go.uber.org/zap"
)

// New constructs a logger writing to stderr. verbose switches to the
// development config (debug level, human-oriented output); jsonFormat
// forces JSON encoding either way.
func New(verbose, jsonFormat bool) (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if jsonFormat {
		cfg.Encoding = "json"
	}
	return cfg.Build()
}

// Must is New, panicking on failure. Config building only fails on bad
// output paths, which the fixed stderr paths rule out.
func Must(verbose, jsonFormat bool) *zap.Logger {
	logger, err := New(verbose, jsonFormat)
	if err != nil {
		panic(err)
	}
	return logger
}
