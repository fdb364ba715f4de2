package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"PropRecon/internal/di"
	"PropRecon/pkg/config"
	"PropRecon/pkg/server"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "proprecon",
		Short:         "Property listing reconciliation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	var dryRun bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one reconciliation run and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			report, err := app.RunOnce(context.Background(), dryRun)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute signals without persisting or publishing")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the signals API (with the scheduler when enabled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			return app.Serve()
		},
	}

	root.AddCommand(runCmd, serveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildApp() (*server.App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}
