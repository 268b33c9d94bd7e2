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

	// rootCmd represents the base command for stopping and unregistering a service.
	rootCmd = &cobra.Command{
		Use:   "steward-stop <service>",
		Short: "Stop a service and unregister it from launchd",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &supervisor.Options{
				ConfigPath: configPath,
				Service:    args[0],
			}

			return supervisor.RunStop(ctx, options)
		},
	}
)

// Execute runs the steward-stop CLI and exits with non-zero status on error.
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
