package cmd

import (
	"fmt"
	"time"

	"github.com/haxorport/tunnel-bridge/internal/application/service"
	"github.com/spf13/cobra"
)

// reportCmd groups error reporting commands
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Error reporting",
	Long:  `Initialize the native error reporting backend and send event batches.`,
}

var reportInitCmd = &cobra.Command{
	Use:   "init [api-key]",
	Short: "Initialize error reporting",
	Long: `Initialize error reporting. Without an argument the configured
error_reporting_key is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey := Container.Config.ErrorReportingKey
		if len(args) == 1 {
			apiKey = args[0]
		}
		if apiKey == "" {
			return fmt.Errorf("no api key given and error_reporting_key is not configured")
		}

		ctx, cancel := requestContext()
		defer cancel()
		if err := Container.ErrorReporter.Initialize(ctx, apiKey); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Error reporting initialized")
		return nil
	},
}

var reportSendCmd = &cobra.Command{
	Use:   "send [uuid]",
	Short: "Send an event batch",
	Long: `Ask the native layer to deliver the events of a batch. A new batch id
is generated when none is given. The configured error_reporting_key is used
to initialize reporting first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := service.NewReportID()
		if len(args) == 1 {
			id = args[0]
		}

		ctx, cancel := requestContext()
		defer cancel()

		if key := Container.Config.ErrorReportingKey; key != "" {
			if err := Container.ErrorReporter.Initialize(ctx, key); err != nil {
				return err
			}
		}
		if err := Container.ErrorReporter.Send(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Events %s reported\n", id)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportInitCmd)
	reportCmd.AddCommand(reportSendCmd)
	reportCmd.PersistentFlags().DurationVar(&tunnelTimeout, "timeout", 30*time.Second, "How long to wait for the native layer (0 waits forever)")
}
