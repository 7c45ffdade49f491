package cmd

import (
	"fmt"

	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/spf13/cobra"
)

var (
	addTunnelName     string
	addTunnelID       string
	addTunnelHost     string
	addTunnelPort     int
	addTunnelMethod   string
	addTunnelPassword string
	addTunnelPrefix   string
)

// configCmd is the command to manage configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage Tunnel Bridge configuration.`,
}

// configShowCmd is the command to display configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration",
	Long:  `Display Tunnel Bridge configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		cfg := Container.Config

		fmt.Fprintln(out, "Tunnel Bridge Configuration:")
		fmt.Fprintf(out, "Connection Mode: %s\n", cfg.ConnectionMode)
		fmt.Fprintf(out, "Server Address: %s\n", cfg.ServerAddress)
		fmt.Fprintf(out, "Control Port: %d\n", cfg.ControlPort)
		fmt.Fprintf(out, "Service Name: %s\n", cfg.ServiceName)
		fmt.Fprintf(out, "Error Reporting Key: %s\n", maskString(cfg.ErrorReportingKey))
		fmt.Fprintf(out, "Log Level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "Log File: %s\n", cfg.LogFile)

		if len(cfg.Tunnels) > 0 {
			fmt.Fprintln(out, "\nTunnels:")
			for i, tunnel := range cfg.Tunnels {
				fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, tunnel.Name, tunnel.ID)
				fmt.Fprintf(out, "     Server: %s:%d\n", tunnel.Server.Host, tunnel.Server.Port)
				if tunnel.Server.Method != "" {
					fmt.Fprintf(out, "     Method: %s\n", tunnel.Server.Method)
				}
			}
		}
	},
}

// configSetCmd is the command to set configuration
var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set configuration",
	Long: `Set Tunnel Bridge configuration.
Examples:
  tunnel-bridge config set connection_mode websocket
  tunnel-bridge config set server_address 127.0.0.1
  tunnel-bridge config set control_port 9090
  tunnel-bridge config set error_reporting_key my-key
  tunnel-bridge config set log_level debug`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := Container.ConfigService.Set(Container.Config, key, value); err != nil {
			return err
		}
		if err := Container.ConfigService.SaveConfig(Container.Config, ConfigPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s successfully changed to %s\n", key, value)
		return nil
	},
}

// configAddTunnelCmd is the command to add a tunnel to configuration
var configAddTunnelCmd = &cobra.Command{
	Use:   "add-tunnel",
	Short: "Add tunnel to configuration",
	Long: `Add tunnel to Tunnel Bridge configuration.
Examples:
  tunnel-bridge config add-tunnel --name home --host 203.0.113.7 --port 8388 --password secret
  tunnel-bridge config add-tunnel --name office --id office-1 --host vpn.example.com --port 443 --password secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addTunnelPort <= 0 {
			return fmt.Errorf("port must be greater than 0")
		}

		entry := Container.ConfigService.AddTunnel(Container.Config, model.TunnelEntry{
			Name: addTunnelName,
			ID:   addTunnelID,
			Server: model.ServerConfig{
				Host:     addTunnelHost,
				Port:     addTunnelPort,
				Method:   addTunnelMethod,
				Password: addTunnelPassword,
				Prefix:   addTunnelPrefix,
				Name:     addTunnelName,
			},
		})

		if err := Container.ConfigService.SaveConfig(Container.Config, ConfigPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Tunnel %s (%s) successfully added to configuration\n", entry.Name, entry.ID)
		return nil
	},
}

// configRemoveTunnelCmd is the command to remove a tunnel from configuration
var configRemoveTunnelCmd = &cobra.Command{
	Use:   "remove-tunnel [name]",
	Short: "Remove tunnel from configuration",
	Long: `Remove tunnel from Tunnel Bridge configuration.
Examples:
  tunnel-bridge config remove-tunnel home`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if !Container.ConfigService.RemoveTunnel(Container.Config, name) {
			return fmt.Errorf("tunnel with name %s not found", name)
		}
		if err := Container.ConfigService.SaveConfig(Container.Config, ConfigPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Tunnel %s successfully removed from configuration\n", name)
		return nil
	},
}

// maskString hides part of a string
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configAddTunnelCmd)
	configCmd.AddCommand(configRemoveTunnelCmd)

	configAddTunnelCmd.Flags().StringVarP(&addTunnelName, "name", "n", "", "Tunnel name")
	configAddTunnelCmd.Flags().StringVar(&addTunnelID, "id", "", "Tunnel id (default: generated)")
	configAddTunnelCmd.Flags().StringVarP(&addTunnelHost, "host", "H", "", "Server host")
	configAddTunnelCmd.Flags().IntVarP(&addTunnelPort, "port", "p", 0, "Server port")
	configAddTunnelCmd.Flags().StringVarP(&addTunnelMethod, "method", "m", "chacha20-ietf-poly1305", "Cipher method")
	configAddTunnelCmd.Flags().StringVarP(&addTunnelPassword, "password", "w", "", "Server password")
	configAddTunnelCmd.Flags().StringVar(&addTunnelPrefix, "prefix", "", "Connection prefix")

	configAddTunnelCmd.MarkFlagRequired("name")
	configAddTunnelCmd.MarkFlagRequired("host")
	configAddTunnelCmd.MarkFlagRequired("port")
}
