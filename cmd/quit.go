package cmd

import (
	"github.com/spf13/cobra"
)

// quitCmd asks the native layer to terminate the host application
var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Quit the host application",
	Long: `Ask the native layer to terminate the host application.
The command does not wait for, or report, the outcome.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		Container.Application.Quit()
	},
}

func init() {
	RootCmd.AddCommand(quitCmd)
}
