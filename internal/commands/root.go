package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tehokas/taskdeck/db"
	"github.com/tehokas/taskdeck/internal/config"
	"github.com/tehokas/taskdeck/internal/logging"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "TaskDeck - a project scoped kanban task board",
	Long: `TaskDeck serves a JSON API for project task boards. Users pick an active
project and move its tasks between pending, in progress and done.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap(service string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	err = logging.Init(logging.Options{
		Level:    cfg.LogLevel,
		File:     cfg.LogFile,
		JSON:     cfg.IsProduction(),
		Service:  service,
		ToStdout: !cfg.IsProduction(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}

	conn, err := db.ConnectDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	return cfg, conn, nil
}
