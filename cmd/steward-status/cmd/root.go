package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/homelab-ops/steward/internal/service/supervisor"
	"github.com/homelab-ops/steward/internal/version"
)

var (
	// configPath to the service catalog YAML file.
	configPath string

	// rootCmd represents the base command for the status report.
	rootCmd = &cobra.Command{
		Use:   "steward-status [service]",
		Short: "Report registration, process and version state of managed services",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &supervisor.Options{ConfigPath: configPath}
			if len(args) > 0 {
				options.Service = args[0]
			}

			return supervisor.RunStatus(ctx, options)
		},
	}
)

// Execute runs the steward-status CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the service catalog")
}
