package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haxorport/tunnel-bridge/internal/application/service"
	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/spf13/cobra"
)

var (
	tunnelTimeout time.Duration
	tunnelDetach  bool
)

// tunnelCmd groups commands that address one configured tunnel
var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Control tunnels",
	Long:  `Start, stop and inspect tunnels through the native layer.`,
}

var tunnelStartCmd = &cobra.Command{
	Use:   "start [name]",
	Short: "Start a tunnel",
	Long: `Start a configured tunnel and follow its status until interrupted.
Examples:
  tunnel-bridge tunnel start home
  tunnel-bridge tunnel start home --detach`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tunnel, entry, err := Container.TunnelService.Open(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if !tunnelDetach {
			Container.KeepAlive()
			if err := tunnel.OnStatusChange(printStatus(out, entry.Name)); err != nil {
				return err
			}
		}

		ctx, cancel := requestContext()
		err = tunnel.Start(ctx, &entry.Server)
		cancel()
		if err != nil {
			return describeError(err)
		}
		fmt.Fprintf(out, "Tunnel %s started\n", entry.Name)

		if tunnelDetach {
			return nil
		}

		fmt.Fprintln(out, "Press Ctrl+C to stop the tunnel")
		waitForSignal()

		ctx, cancel = requestContext()
		defer cancel()
		if err := tunnel.Stop(ctx); err != nil {
			return describeError(err)
		}
		fmt.Fprintf(out, "Tunnel %s stopped\n", entry.Name)
		return nil
	},
}

var tunnelStopCmd = &cobra.Command{
	Use:   "stop [name]",
	Short: "Stop a tunnel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tunnel, entry, err := Container.TunnelService.Open(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := requestContext()
		defer cancel()
		if err := tunnel.Stop(ctx); err != nil {
			return describeError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tunnel %s stopped\n", entry.Name)
		return nil
	},
}

var tunnelStatusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show whether tunnels are running",
	Long: `Show whether a tunnel is running. Without a name every configured tunnel is queried.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0)
		if len(args) == 1 {
			names = append(names, args[0])
		} else {
			for _, entry := range Container.TunnelService.GetAllTunnels() {
				names = append(names, entry.Name)
			}
		}

		// Queries run concurrently; each handle carries its own id
		calls := make([]*service.Call, len(names))
		for i, name := range names {
			tunnel, _, err := Container.TunnelService.Open(name)
			if err != nil {
				return err
			}
			calls[i] = tunnel.IsRunningAsync()
		}

		ctx, cancel := requestContext()
		defer cancel()

		out := cmd.OutOrStdout()
		for i, call := range calls {
			value, err := call.Await(ctx)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", names[i], describeError(err))
				continue
			}
			running, err := model.BoolFromValue(value)
			if err != nil {
				fmt.Fprintf(out, "%s: %v\n", names[i], err)
				continue
			}
			state := "stopped"
			if running {
				state = "running"
			}
			fmt.Fprintf(out, "%s: %s\n", names[i], state)
		}
		return nil
	},
}

var tunnelReachableCmd = &cobra.Command{
	Use:   "reachable [name]",
	Short: "Check whether a tunnel's server is reachable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tunnel, entry, err := Container.TunnelService.Open(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := requestContext()
		defer cancel()
		reachable, err := tunnel.IsReachable(ctx, &entry.Server)
		if err != nil {
			return describeError(err)
		}

		if reachable {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d is reachable\n", entry.Server.Host, entry.Server.Port)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d is not reachable\n", entry.Server.Host, entry.Server.Port)
		}
		return nil
	},
}

var tunnelWatchCmd = &cobra.Command{
	Use:   "watch [name]",
	Short: "Follow status changes of a tunnel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tunnel, entry, err := Container.TunnelService.Open(args[0])
		if err != nil {
			return err
		}

		Container.KeepAlive()
		if err := tunnel.OnStatusChange(printStatus(cmd.OutOrStdout(), entry.Name)); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Watching tunnel %s, press Ctrl+C to exit\n", entry.Name)
		waitForSignal()
		return nil
	},
}

func printStatus(out io.Writer, name string) service.StatusListener {
	return func(status model.TunnelStatus) {
		fmt.Fprintf(out, "[%s] %s %s\n", time.Now().Format("15:04:05"), name, status)
	}
}

// requestContext bounds how long the CLI waits for the native layer
func requestContext() (context.Context, context.CancelFunc) {
	if tunnelTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), tunnelTimeout)
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	signal.Stop(sigCh)
}

// describeError turns plugin errors into a message a user can act on
func describeError(err error) error {
	var pluginErr *model.PluginError
	if !errors.As(err, &pluginErr) {
		return err
	}

	switch pluginErr.Code() {
	case model.VPNPermissionNotGranted:
		return fmt.Errorf("%w: grant the VPN permission and try again", err)
	case model.InvalidServerCredentials:
		return fmt.Errorf("%w: check the server password", err)
	case model.ServerUnreachable:
		return fmt.Errorf("%w: the server could not be reached", err)
	case model.IllegalServerConfiguration:
		return fmt.Errorf("%w: the server configuration is incomplete", err)
	case model.NoAdminPermissions:
		return fmt.Errorf("%w: run with administrator privileges", err)
	default:
		return err
	}
}

func init() {
	RootCmd.AddCommand(tunnelCmd)
	tunnelCmd.AddCommand(tunnelStartCmd)
	tunnelCmd.AddCommand(tunnelStopCmd)
	tunnelCmd.AddCommand(tunnelStatusCmd)
	tunnelCmd.AddCommand(tunnelReachableCmd)
	tunnelCmd.AddCommand(tunnelWatchCmd)

	tunnelCmd.PersistentFlags().DurationVar(&tunnelTimeout, "timeout", 30*time.Second, "How long to wait for the native layer (0 waits forever)")
	tunnelStartCmd.Flags().BoolVarP(&tunnelDetach, "detach", "d", false, "Return once the tunnel is started")
}
