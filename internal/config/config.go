// Package config loads nospawn settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const appName = "nospawn"

// Environment variables.
const (
	EnvDataDir   = "NOSPAWN_DATA_DIR"
	EnvLogFile   = "NOSPAWN_LOG_FILE"
	EnvDebug     = "NOSPAWN_DEBUG"
	EnvRequire   = "NOSPAWN_REQUIRE"
	EnvJournal   = "NOSPAWN_JOURNAL"
	EnvCoreUtils = "NOSPAWN_CORE_UTILS"
)

type Config struct {
	// DataDir holds the activation journal.
	DataDir string

	// LogFile, when set, receives JSON logs instead of stderr.
	LogFile string

	Debug bool

	// Require turns a failed activation into a fatal error. The default is
	// to warn and continue.
	Require bool

	// Journal records every activation in DataDir.
	Journal bool

	// CoreUtils serves common utilities in-process in the embedded shell.
	CoreUtils bool
}

// Load reads .env from the working directory, if present, then the
// NOSPAWN_* variables. Variables already in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		DataDir:   os.Getenv(EnvDataDir),
		LogFile:   os.Getenv(EnvLogFile),
		Journal:   true,
		CoreUtils: true,
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	for _, b := range []struct {
		env string
		dst *bool
	}{
		{EnvDebug, &cfg.Debug},
		{EnvRequire, &cfg.Require},
		{EnvJournal, &cfg.Journal},
		{EnvCoreUtils, &cfg.CoreUtils},
	} {
		if err := lookupBool(b.env, b.dst); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func lookupBool(env string, dst *bool) error {
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", env, err)
	}
	*dst = b
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return "." + appName
}
