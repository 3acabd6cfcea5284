package app

import (
	"github.com/spf13/cobra"

	"github.com/tenantadmin/tenantadmin/internal/config"
)

var dumpJSON bool

func init() { //nolint: gochecknoinits
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "dump as json, the format of "+config.EnvConfigJSON)

	configCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective configuration, defaults and overrides applied",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dump := config.DumpConfig
		if dumpJSON {
			dump = config.DumpConfigJSON
		}

		out, err := dump(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		cmd.Print(out)

		return nil
	},
}
