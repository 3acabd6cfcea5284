package app

import (
	"github.com/spf13/cobra"

	"github.com/tenantadmin/tenantadmin/internal/daemon"
	"github.com/tenantadmin/tenantadmin/internal/db"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate the database and create the permission catalog and the bootstrap admin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		database, err := db.Open(&cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if err = db.Migrate(database); err != nil {
			return err //nolint:wrapcheck
		}

		res, err := daemon.Seed(cmd.Context(), &cfg, database)
		if err != nil {
			return err //nolint:wrapcheck
		}

		cmd.Printf("permissions created: %d\n", res.Permissions)

		if res.AdminPassword != "" {
			// shown once, it is not stored in clear anywhere
			cmd.Printf("central superadmin: %s / %s\n", res.AdminEmail, res.AdminPassword)
		}

		return nil
	},
}
