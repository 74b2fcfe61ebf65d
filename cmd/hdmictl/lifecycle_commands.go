package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hdmictl/internal/daemonctl"
)

const (
	startWaitTimeout = 10 * time.Second
	stopGracePeriod  = 5 * time.Second
)

func newLifecycleCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the hdmictl daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := startDaemon(ctx, startLogLevel)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override the configured log level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the hdmictl daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			result, err := stopDaemon(ctx)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon did not exit in %s; killed pid %d\n", stopGracePeriod, result.PID)
				return nil
			}
			fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the hdmictl daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if _, err := stopDaemon(ctx); err != nil && !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return err
			}
			result, err := startDaemon(ctx, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Daemon restarted (pid %d)\n", result.PID)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd}
}

func startDaemon(ctx *commandContext, logLevel string) (daemonctl.StartResult, error) {
	exe, err := os.Executable()
	if err != nil {
		return daemonctl.StartResult{}, fmt.Errorf("resolve executable: %w", err)
	}
	var configPath string
	if ctx.configFlag != nil {
		configPath = strings.TrimSpace(*ctx.configFlag)
	}
	return daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonctl.LaunchOptions{
		SocketPath: ctx.socketPath(),
		ConfigPath: configPath,
		LogLevel:   logLevel,
	}, startWaitTimeout)
}

func stopDaemon(ctx *commandContext) (daemonctl.StopResult, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return daemonctl.StopResult{}, err
	}
	return daemonctl.Stop(ctx.socketPath(), cfg.PIDPath(), stopGracePeriod)
}
