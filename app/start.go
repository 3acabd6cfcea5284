package app

import (
	"github.com/spf13/cobra"

	"github.com/tenantadmin/tenantadmin/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the TenantAdmin web service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(cmd.Context(), &cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		return d.Start()
	},
}
