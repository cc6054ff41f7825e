// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/plant-harvester/internal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show symbols that failed in a recorded run",
	Long: `Journal reads a run journal written with --journal and prints the
failed symbols of a run, so they can be retried with --symbol. The latest run
is shown unless --run names another. Use --all to list every symbol.`,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().String("db", "", "journal file (default: journal_path from config)")
	journalCmd.Flags().String("run", "", "run ID (default: latest run)")
	journalCmd.Flags().Bool("all", false, "list every symbol, not only failures")

	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("journal_path")
	}
	if path == "" {
		return fmt.Errorf("provide a journal file with --db")
	}
	runID, _ := cmd.Flags().GetString("run")
	all, _ := cmd.Flags().GetBool("all")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	if runID == "" {
		runID, err = j.LatestRun(ctx)
		if err != nil {
			return err
		}
	}

	entries, err := j.Outcomes(ctx, runID, !all)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", runID)
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching symbols.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Symbol", "Identifier", "State", "Missing", "Images", "Error", "Recorded"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Symbol,
			e.Identifier,
			e.State,
			strings.Join(e.Missing, ", "),
			fmt.Sprintf("%d/%d", e.ImagesDownloaded, e.ImagesDownloaded+e.ImagesFailed),
			e.Err,
			e.RecordedAt.Local().Format(time.DateTime),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
