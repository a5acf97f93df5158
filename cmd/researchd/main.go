package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	srv "github.com/DeividiJaeger/crewai-wiki-agent/internal/server"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "researchd"}

	var configPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the research HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&configPath, "config", "", "path to config file (default: ./config/config.yaml)")

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations (postgres driver only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			dsn := os.Getenv("DATABASE_URL")
			if dsn == "" {
				dsn = cfg.Storage.Postgres.DSN()
			}
			return srv.Migrate(migDir, dsn, direction, steps)
		},
	}
	migrate.Flags().StringVar(&configPath, "config", "", "path to config file")
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	root.AddCommand(serve, migrate)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
