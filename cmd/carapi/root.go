package main

import (
	"github.com/spf13/cobra"

	"carapi/cmd/internal/app"
)

// envFile is the dotenv file loaded before configuration is read.
var envFile string

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "carapi",
		Short: "carapi - authenticated car inventory API",
		Long: `carapi serves user registration, token authentication, a soft-deleting
car inventory, and per-sender latest messages over PostgreSQL.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Configuration comes from the environment
(PORT, DATABASE_URL or DB_*, JWT_KEY, CARAPI_*).`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	return app.Run(cmd.Context(), envFile)
}
