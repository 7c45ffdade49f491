package cmd

import (
	"fmt"
	"os"

	"github.com/haxorport/tunnel-bridge/internal/di"
	"github.com/spf13/cobra"
)

var (
	// Container is the dependency injection container
	Container *di.Container

	// ConfigPath is the path to the configuration file
	ConfigPath string

	// LogLevel is the logging level
	LogLevel string

	// RootCmd is the root command for CLI
	RootCmd = &cobra.Command{
		Use:   "tunnel-bridge",
		Short: "Tunnel Bridge - control plane for native VPN tunnels",
		Long: `Tunnel Bridge drives a platform-native VPN tunnel implementation.
It sends start, stop and status commands to the native layer and
reports status changes and errors back.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Container = di.NewContainer()

			if err := Container.Initialize(ConfigPath); err != nil {
				return err
			}

			// Flag overrides the configured level
			if cmd.Flags().Changed("log-level") {
				Container.Logger.SetLevel(LogLevel)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if Container != nil {
				Container.Close()
			}
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "c", "", "Path to configuration file (default: ~/.tunnel-bridge/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "warn", "Set logging level (debug, info, warn, error)")
}
