// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/tenantadmin/tenantadmin/internal/config"
	"github.com/tenantadmin/tenantadmin/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tenantadmin",
	Short: "TenantAdmin is the administration service of a multi-tenant platform",
	Long: `TenantAdmin manages tenants, users, roles and permissions of a multi-tenant
platform. Every tenant is reached through its own domain, the central context
administers the platform itself.`,
	Args:              cobra.OnlyValidArgs,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

var (
	configPath string // Path to the configuration directory
	devMode    bool

	cfg config.Config
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "configuration directory holding main.toml")
}

// loadConfig reads the configuration and initializes the logger for every command.
func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err //nolint:wrapcheck
	}

	if devMode {
		cfg.DevMode = true
	}

	if cfg.Log.ServiceName == "" {
		cfg.Log.ServiceName = "tenantadmin"
	}

	if cfg.Log.AppName == "" {
		cfg.Log.AppName = "tenantadmin"
	}

	return logger.Init(cfg.Log) //nolint:wrapcheck
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute() //nolint:wrapcheck
}
