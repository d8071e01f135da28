package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tehokas/taskdeck/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, conn, err := bootstrap("taskdeck-migrate")
		if err != nil {
			return err
		}

		if err := db.MigrateDatabase(conn); err != nil {
			color.Red("migration failed: %v\n", err)
			return err
		}

		color.Green("schema is up to date\n")
		return nil
	},
}
