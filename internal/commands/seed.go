package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tehokas/taskdeck/db"
	"github.com/tehokas/taskdeck/internal/seed"
)

var (
	seedDemo         bool
	seedDemoPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the administrator account and optional demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := bootstrap("taskdeck-seed")
		if err != nil {
			return err
		}

		if err := db.MigrateDatabase(conn); err != nil {
			return err
		}

		result, err := seed.Run(cmd.Context(), conn, seed.Options{
			AdminName:     cfg.SeedAdminName,
			AdminEmail:    cfg.SeedAdminEmail,
			AdminPassword: cfg.SeedAdminPassword,
			Demo:          seedDemo,
			DemoPassword:  seedDemoPassword,
		})
		if err != nil {
			color.Red("seed failed: %v\n", err)
			return err
		}

		if result.AdminCreated {
			color.Green("created admin %s (id %d)\n", cfg.SeedAdminEmail, result.AdminID)
		} else {
			color.Yellow("admin %s already exists (id %d)\n", cfg.SeedAdminEmail, result.AdminID)
		}

		if seedDemo {
			fmt.Printf("demo member id %d, demo projects %v\n", result.DemoMemberID, result.DemoProjectIDs)
		}

		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create a demo member with sample projects")
	seedCmd.Flags().StringVar(&seedDemoPassword, "demo-password", "", "password for the demo member (defaults to the admin password)")
}
