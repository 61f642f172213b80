package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env files into the process environment. Missing files are
// not an error; variables already set are never overwritten.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overlays environment variables on top of cfg. Unset variables
// leave the file values untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.applyDefaults()
	cfg.expandPaths()
	return nil
}

// Resolve is the start-up path: .env, then the config file (or defaults),
// then environment overrides. Sealed credentials are opened last.
func Resolve(path string) (*Config, error) {
	LoadDotEnv()

	var (
		cfg *Config
		err error
	)
	if path != "" {
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = LoadOrDefault()
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Unseal(os.Getenv(SecretEnv)); err != nil {
		return nil, err
	}
	return cfg, nil
}
