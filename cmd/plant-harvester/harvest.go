// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/plant-harvester/internal/harvest"
	"github.com/pdiddy/plant-harvester/internal/journal"
	"github.com/pdiddy/plant-harvester/internal/media"
	"github.com/pdiddy/plant-harvester/internal/plants"
	"github.com/pdiddy/plant-harvester/internal/symbols"
	"github.com/pdiddy/plant-harvester/pkg/types"
)

const defaultCSVFile = "plants.csv"

// configKeys are the HarvestConfig keys viper resolves from the config file
// and PLANT_HARVESTER_* environment variables.
var configKeys = []string{
	"api_base", "asset_base", "output_dir", "symbol_column",
	"delay", "timeout", "user_agent", "journal_path",
}

func init() {
	rootCmd.Flags().String("symbol", "", "process a single species symbol (implies debug logging)")
	rootCmd.Flags().String("csv-file", defaultCSVFile, "CSV file with a symbol column")
	rootCmd.Flags().String("output-dir", "", "base output directory (default \"output\")")
	rootCmd.Flags().Duration("delay", 0, "delay between consecutive symbols (default 1s)")
	rootCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	rootCmd.Flags().String("journal", "", "record per-symbol outcomes in this SQLite file")
	rootCmd.MarkFlagsMutuallyExclusive("symbol", "csv-file")
}

// loadConfig resolves the harvest configuration. Flags override config file
// and environment values; anything still unset takes its default.
func loadConfig(cmd *cobra.Command) (types.HarvestConfig, error) {
	var cfg types.HarvestConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v != 0 {
		cfg.Timeout = v
	}
	if v, _ := cmd.Flags().GetString("journal"); v != "" {
		cfg.JournalPath = v
	}

	cfg, err := cfg.WithDefaults()
	if err != nil {
		return cfg, err
	}

	// An explicit zero delay disables the throttle, so it is applied after
	// the defaults are merged.
	if viper.IsSet("delay") {
		cfg.Delay = viper.GetDuration("delay")
	}
	if cmd.Flags().Changed("delay") {
		cfg.Delay, _ = cmd.Flags().GetDuration("delay")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runHarvest(cmd *cobra.Command, args []string) error {
	symbol, _ := cmd.Flags().GetString("symbol")
	symbol = strings.TrimSpace(symbol)
	single := cmd.Flags().Changed("symbol")
	if single {
		if symbol == "" {
			return fmt.Errorf("--symbol must not be empty")
		}
		configureLogging(true)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var list []string
	if single {
		list = []string{symbol}
	} else {
		csvFile, _ := cmd.Flags().GetString("csv-file")
		list, err = symbols.Read(csvFile, cfg.SymbolColumn)
		if err != nil {
			return err
		}
		slog.Debug("symbol list loaded", "path", csvFile, "symbols", len(list))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	result, runID, err := harvestSymbols(ctx, cfg, list, out)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err == nil {
		summaryPath := filepath.Join(cfg.OutputDir, harvest.SummaryFile)
		if err := harvest.WriteSummary(summaryPath, harvest.NewSummary(runID, result, time.Now())); err != nil {
			slog.Warn("writing run summary failed", "path", summaryPath, "err", err)
		}
	}

	if single && result.HasFailures() {
		return fmt.Errorf("symbol %s failed", symbol)
	}
	return nil
}

// harvestSymbols builds the harvester for cfg and runs the batch, recording
// to the journal when one is configured.
func harvestSymbols(ctx context.Context, cfg types.HarvestConfig, list []string, out io.Writer) (harvest.BatchResult, string, error) {
	hc := &http.Client{Timeout: cfg.Timeout}
	h := &harvest.Harvester{
		Client: plants.NewClient(hc, cfg.APIBase, cfg.UserAgent),
		Media: &media.Downloader{
			Client:    hc,
			AssetBase: cfg.AssetBase,
			UserAgent: cfg.UserAgent,
		},
		OutputDir: cfg.OutputDir,
		Delay:     cfg.Delay,
	}

	var run *journal.Run
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return harvest.BatchResult{}, "", err
		}
		defer j.Close()
		run, err = j.Begin(ctx, cfg, len(list))
		if err != nil {
			return harvest.BatchResult{}, "", err
		}
		h.Recorder = run
		slog.Info("journal run started", "run", run.ID, "path", cfg.JournalPath)
	}

	result := h.RunBatch(ctx, list, out)

	if run == nil {
		return result, "", nil
	}
	if err := run.Finish(ctx, result.Succeeded, result.Failed); err != nil {
		slog.Warn("finishing journal run failed", "run", run.ID, "err", err)
	}
	return result, run.ID, nil
}
