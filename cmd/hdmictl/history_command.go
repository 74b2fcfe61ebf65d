package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hdmictl/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var connector string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently published mode snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("journal is disabled in configuration")
			}
			path := cfg.JournalPath()
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots recorded yet")
				return nil
			}
			store, err := journal.Open(path, 0)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), connector, limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			if asJSON {
				snaps := make([]any, 0, len(entries))
				for _, e := range entries {
					snaps = append(snaps, e.Snapshot)
				}
				return writeJSON(cmd, snaps)
			}
			printHistory(cmd, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of snapshots to show")
	cmd.Flags().StringVar(&connector, "connector", "", "Only show snapshots for this connector")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printHistory(cmd *cobra.Command, entries []journal.Entry) {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No snapshots recorded yet")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		snap := e.Snapshot
		preferred := "-"
		if snap.Preferred != nil {
			preferred = snap.Preferred.Name
		}
		rows = append(rows, []string{
			snap.At.Local().Format(time.DateTime),
			snap.Connector,
			snap.Reason,
			humanize(snap.Status.String()),
			strconv.Itoa(len(snap.Modes)),
			strconv.Itoa(snap.RejectedTotal()),
			preferred,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Time", "Connector", "Reason", "Status", "Modes", "Rejected", "Preferred"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		shouldColorize(out),
	))
}
