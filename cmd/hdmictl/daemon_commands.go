package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hdmictl/internal/daemonrun"
	"hdmictl/internal/display"
	"hdmictl/internal/encoder"
	"hdmictl/internal/ipc"
	"hdmictl/internal/pipeline"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	runCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the hdmictl daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   logLevel,
				SocketPath: ctx.socketPath(),
			})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and connector status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if statusJSON {
					return writeJSON(cmd, resp)
				}
				printStatus(cmd, resp)
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	var reason string
	var reevalJSON bool
	reevaluateCmd := &cobra.Command{
		Use:   "reevaluate",
		Short: "Ask the daemon to re-detect the display and republish its modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reevaluate(reason)
				if err != nil {
					return err
				}
				if reevalJSON {
					return writeJSON(cmd, resp)
				}
				snap := resp.Snapshot
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Snapshot %s: %s, %d modes, %d rejected\n",
					snap.ID, snap.Status, len(snap.Modes), snap.RejectedTotal())
				if snap.Preferred != nil {
					fmt.Fprintf(out, "Preferred: %s\n", snap.Preferred.Name)
				}
				if resp.PublishError != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "warn: snapshot not fully published: %s\n", resp.PublishError)
				}
				return nil
			})
		},
	}
	reevaluateCmd.Flags().StringVar(&reason, "reason", pipeline.ReasonManual, "Reason recorded on the snapshot")
	reevaluateCmd.Flags().BoolVar(&reevalJSON, "json", false, "Output as JSON")

	powerCmd := &cobra.Command{
		Use:       "power <on|standby|suspend|off>",
		Short:     "Request a DPMS power level",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "standby", "suspend", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := encoder.ParsePowerMode(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetPower(mode.String())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Power level set to %s\n", resp.Mode)
				return nil
			})
		},
	}

	return []*cobra.Command{runCmd, statusCmd, reevaluateCmd, powerCmd}
}

func printStatus(cmd *cobra.Command, resp *ipc.StatusResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	lines := renderSectionHeader("Daemon", colorize)

	if resp.Running {
		uptime := time.Since(resp.Started).Truncate(time.Second)
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (up %s)", uptime), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Stopped", colorize))
	}
	names := make([]string, 0, len(resp.Monitors))
	for name := range resp.Monitors {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		kind, state := statusWarn, "Inactive"
		if resp.Monitors[name] {
			kind, state = statusOK, "Listening"
		}
		lines = append(lines, renderStatusLine(humanize(name)+" events", kind, state, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Connector "+resp.Connector, colorize)...)
	lines = append(lines, renderStatusLine("Display", connectionKind(display.ParseStatus(resp.LastStatus)), humanize(resp.LastStatus), colorize))
	lines = append(lines, renderStatusLine("DDC channel", statusInfo, yesNo(resp.HasChannel), colorize))
	lines = append(lines, renderStatusLine("Power", statusInfo, humanize(resp.Power), colorize))
	env := resp.Envelope
	limits := fmt.Sprintf("%dx%d @ %d kHz, preferred %dx%d",
		env.MaxHorizontal, env.MaxVertical, env.MaxPixelClockKHz, env.PreferredHorizontal, env.PreferredVertical)
	if len(env.Defaulted) > 0 {
		limits += fmt.Sprintf(" (%d defaulted)", len(env.Defaulted))
	}
	lines = append(lines, renderStatusLine("Limits", statusInfo, limits, colorize))

	if snap := resp.Latest; snap != nil {
		preferred := "none"
		if snap.Preferred != nil {
			preferred = snap.Preferred.Name
		}
		lines = append(lines, renderStatusLine("Modes", statusInfo,
			fmt.Sprintf("%d offered, %d rejected, preferred %s (%s)", len(snap.Modes), snap.RejectedTotal(), preferred, snap.Reason), colorize))
	} else {
		lines = append(lines, renderStatusLine("Modes", statusWarn, "No snapshot published yet", colorize))
	}
	if resp.JournalPath != "" {
		lines = append(lines, renderStatusLine("Journal", statusInfo, resp.JournalPath, colorize))
	}

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}
