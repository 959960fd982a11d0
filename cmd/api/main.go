package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yigit/schoolportal/internal/pkg/logger"
	"github.com/yigit/schoolportal/internal/server"
)

// @title School Portal API
// @version 1.0
// @description Admin and student portal API: admissions, enrollment, grading and documents

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Run the school portal HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := server.NewServer(configPath)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to initialize server")
				return err
			}
			if err := srv.Run(); err != nil {
				logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
				return err
			}
			logger.Info().Msg("Application finished gracefully.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default configs/config.yaml)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
