// Package cli is the wbot command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byAyes/wbot/internal/core/config"
	"github.com/byAyes/wbot/internal/core/logging"
	"github.com/byAyes/wbot/internal/core/version"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "wbot",
	Short:         "Chat relay bot that fetches audio and video on command",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ~/.config/wbot/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// Execute runs the root command. ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves the config (.env, file, environment) and sets up
// logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
