package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// envKeyReplacer maps nested config keys such as cache.ttl to
// MEMOCACHE_CACHE_TTL.
var envKeyReplacer = strings.NewReplacer(".", "_")

// logEnv holds the logging settings read from the environment.
type logEnv struct {
	Level string `env:"MEMOCACHE_LOG" envDefault:"warn"`
	File  bool   `env:"MEMOCACHE_LOG_FILE"`
}

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "memocache").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "memocache.log"), nil
}

func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[logEnv]()
	if err != nil {
		return nil, fmt.Errorf("error parsing log config: %w", err)
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid MEMOCACHE_LOG: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if !cfg.File {
		return func() error { return nil }, nil
	}

	// Log to file
	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return f.Close, nil
}
