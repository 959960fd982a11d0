package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yigit/schoolportal/internal/bootstrap"
	"github.com/yigit/schoolportal/internal/config"
	"github.com/yigit/schoolportal/internal/db"
)

var configPath string

// rootCmd is the operator CLI
var rootCmd = &cobra.Command{
	Use:   "schoolctl",
	Short: "Operator tasks for the school portal",
	Long: `schoolctl runs maintenance tasks against the school portal database.

Available commands:
  migrate      - Apply pending SQL migrations
  seed         - Insert reference addresses, the starter catalogue and the first admin
  create-admin - Create an admin account (password is prompted)
  backup       - Create or list pg_dump backups
  restore      - Restore a backup with psql
  cleanup      - Purge expired refresh tokens and one-time codes`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default configs/config.yaml)")
	rootCmd.AddCommand(migrateCmd, seedCmd, createAdminCmd, backupCmd, restoreCmd, cleanupCmd)
}

// environment is what every database command needs
type environment struct {
	cfg      *config.Config
	logger   zerolog.Logger
	database *db.PostgresDB
}

func (e *environment) Close() {
	if e.database != nil {
		e.database.Close()
	}
}

func openEnvironment() (*environment, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, err
	}
	database, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &environment{cfg: cfg, logger: lgr, database: database}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
