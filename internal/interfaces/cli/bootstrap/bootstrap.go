// Package bootstrap loads configuration, initialises logging and builds the
// application container for CLI commands.
package bootstrap

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shoozy-shop/storefront/internal/app"
	"github.com/shoozy-shop/storefront/internal/infrastructure/config"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

// Flags are the root command's persistent flags.
type Flags struct {
	ConfigPath string
	Env        string
}

// Register adds --config and --env to cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.ConfigPath, "config", "c", "", "Path to config file (default: configs/config.yaml)")
	cmd.PersistentFlags().StringVarP(&f.Env, "env", "e", "development", "Environment (development, test, production)")
}

// Build loads config and returns a ready container. The caller owns
// Shutdown.
func Build(f *Flags) (*app.Container, logger.Interface, error) {
	env := f.Env
	if envVar := os.Getenv("STOREFRONT_ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(f.ConfigPath, env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.NewLogger()
	c, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build application: %w", err)
	}
	return c, log, nil
}
