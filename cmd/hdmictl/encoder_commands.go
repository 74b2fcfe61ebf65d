package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hdmictl/internal/display"
	"hdmictl/internal/edid"
	"hdmictl/internal/encoder"
	"hdmictl/internal/ipc"
)

type detectResult struct {
	Connector  string         `json:"connector"`
	Status     display.Status `json:"status"`
	HasChannel bool           `json:"has_channel"`
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report whether a display is attached",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEncoder(func(enc *encoder.Encoder) error {
				result := detectResult{
					Connector:  enc.Name(),
					Status:     enc.Detect(cmd.Context()),
					HasChannel: enc.HasChannel(),
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine(result.Connector, connectionKind(result.Status), humanize(result.Status.String()), colorize))
				fmt.Fprintln(out, renderStatusLine("DDC channel", statusInfo, yesNo(result.HasChannel), colorize))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type modeRow struct {
	display.Mode
	Verdict encoder.Verdict `json:"verdict"`
}

type modesResult struct {
	Connector string             `json:"connector"`
	Source    encoder.ModeSource `json:"source,omitempty"`
	Identity  *edid.Identity     `json:"identity,omitempty"`
	Preferred *display.Mode      `json:"preferred,omitempty"`
	Modes     []modeRow          `json:"modes"`
	EDID      string             `json:"edid,omitempty"`
}

func newModesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var showAll bool
	var showEDID bool
	cmd := &cobra.Command{
		Use:   "modes",
		Short: "List the modes the encoder would offer",
		Long: "List candidate modes from the display's EDID, or synthesized from the encoder's\n" +
			"limits when no DDC channel is configured. Rejected modes are hidden unless --all is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEncoder(func(enc *encoder.Encoder) error {
				result := collectModes(cmd.Context(), enc, showAll)
				if !showEDID {
					result.EDID = ""
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				printModes(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showAll, "all", false, "Include modes the encoder rejects")
	cmd.Flags().BoolVar(&showEDID, "edid", false, "Include the raw EDID as hex")
	return cmd
}

func collectModes(ctx context.Context, enc *encoder.Encoder, all bool) modesResult {
	set := enc.Modes(ctx)
	result := modesResult{
		Connector: enc.Name(),
		Source:    set.Source,
		Modes:     []modeRow{},
	}
	if len(set.EDID) > 0 {
		result.EDID = hex.EncodeToString(set.EDID)
		if id, err := edid.ReadIdentity(set.EDID); err == nil {
			result.Identity = &id
		}
	}
	for i := range set.Modes {
		verdict := enc.Validate(&set.Modes[i])
		if !verdict.OK() && !all {
			continue
		}
		result.Modes = append(result.Modes, modeRow{Mode: set.Modes[i], Verdict: verdict})
	}
	if set.Preferred != nil && enc.Validate(set.Preferred).OK() {
		preferred := *set.Preferred
		result.Preferred = &preferred
	}
	return result
}

func printModes(cmd *cobra.Command, result modesResult) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if len(result.Modes) == 0 {
		fmt.Fprintf(out, "No modes available on %s\n", result.Connector)
		return
	}
	source := "display EDID"
	if result.Source == encoder.SourceEnvelope {
		source = "encoder limits"
	}
	fmt.Fprintf(out, "%s: %d modes from %s\n", result.Connector, len(result.Modes), source)
	if result.Identity != nil {
		fmt.Fprintf(out, "Display: %s (serial %d)\n", result.Identity.String(), result.Identity.Serial)
	}

	rows := make([][]string, 0, len(result.Modes))
	for _, m := range result.Modes {
		marker := ""
		if m.Preferred {
			marker = "*"
		}
		rows = append(rows, []string{
			marker,
			m.Name,
			fmt.Sprintf("%dx%d", m.Horizontal, m.Vertical),
			strconv.FormatUint(uint64(m.RefreshHz), 10),
			strconv.FormatUint(uint64(m.PixelClockKHz), 10),
			modeFlags(m.Mode),
			humanize(m.Verdict.String()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"", "Name", "Resolution", "Hz", "Clock kHz", "Flags", "Verdict"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
		colorize,
	))
	if result.EDID != "" {
		fmt.Fprintf(out, "EDID: %s\n", result.EDID)
	}
}

func modeFlags(m display.Mode) string {
	var flags []string
	if m.Interlaced {
		flags = append(flags, "interlace")
	}
	if m.DoubleClock {
		flags = append(flags, "dblclk")
	}
	if m.Stereo3D {
		flags = append(flags, "3d")
	}
	return strings.Join(flags, ",")
}

type validateResult struct {
	Mode     display.Mode     `json:"mode"`
	Verdict  encoder.Verdict  `json:"verdict"`
	Envelope ipc.EnvelopeView `json:"envelope"`
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var mode display.Mode
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a mode against the encoder's limits",
		Example: "  hdmictl validate --clock 148500 --width 1920 --height 1080\n" +
			"  hdmictl validate --clock 74250 --width 1920 --height 1080 --interlaced",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEncoder(func(enc *encoder.Encoder) error {
				mode.Name = display.ModeName(mode.Horizontal, mode.Vertical, mode.Interlaced)
				result := validateResult{
					Mode:     mode,
					Verdict:  enc.Validate(&mode),
					Envelope: ipc.NewEnvelopeView(enc.Envelope()),
				}
				if asJSON {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					label := fmt.Sprintf("%s @ %d kHz", mode.Name, mode.PixelClockKHz)
					fmt.Fprintln(out, renderStatusLine(label, verdictKind(result.Verdict), humanize(result.Verdict.String()), shouldColorize(out)))
				}
				if !result.Verdict.OK() {
					return fmt.Errorf("mode rejected: %s", result.Verdict)
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&mode.PixelClockKHz, "clock", 0, "Pixel clock in kHz")
	cmd.Flags().Uint32Var(&mode.Horizontal, "width", 0, "Active horizontal pixels")
	cmd.Flags().Uint32Var(&mode.Vertical, "height", 0, "Active vertical lines")
	cmd.Flags().Uint32Var(&mode.RefreshHz, "refresh", 0, "Refresh rate in Hz (informational)")
	cmd.Flags().BoolVar(&mode.Interlaced, "interlaced", false, "Mode is interlaced")
	cmd.Flags().BoolVar(&mode.DoubleClock, "double-clock", false, "Mode uses pixel repetition")
	cmd.Flags().BoolVar(&mode.Stereo3D, "stereo", false, "Mode carries a 3D stereo layout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("clock")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func newEnvelopeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "Show the resolved encoder limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withEncoder(func(enc *encoder.Encoder) error {
				view := ipc.NewEnvelopeView(enc.Envelope())
				if asJSON {
					return writeJSON(cmd, view)
				}
				printEnvelope(cmd, cfg.Encoder.Prefix, view)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printEnvelope(cmd *cobra.Command, prefix string, view ipc.EnvelopeView) {
	entries := []struct {
		key   string
		value uint32
	}{
		{encoder.KeyMaxPixelClock, view.MaxPixelClockKHz},
		{encoder.KeyMaxHorizontal, view.MaxHorizontal},
		{encoder.KeyMaxVertical, view.MaxVertical},
		{encoder.KeyPreferredHorizontal, view.PreferredHorizontal},
		{encoder.KeyPreferredVertical, view.PreferredVertical},
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		source := "configured"
		if slices.Contains(view.Defaulted, prefix+e.key) {
			source = "default"
		}
		rows = append(rows, []string{prefix + e.key, strconv.FormatUint(uint64(e.value), 10), source})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Property", "Value", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
		shouldColorize(out),
	))
}
