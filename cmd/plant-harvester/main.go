// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the plant-harvester CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd harvests PLANTS data when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "plant-harvester",
	Short: "Fetch and persist USDA PLANTS data for species symbols",
	Long: `plant-harvester resolves USDA PLANTS species symbols to their internal
identifiers, fetches the profile and every supporting resource (distribution,
images, wetland, related links, documentation, characteristics), and writes
them under one directory per symbol. Image files named in the images manifest
are downloaded into an images/ subdirectory.

Symbols come from a CSV list (--csv-file, default plants.csv) or a single
--symbol. Symbols are processed one at a time with a fixed delay between them;
a failed symbol is reported and the batch continues.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		configureLogging(verbose)
		return nil
	},
	RunE: runHarvest,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./plant-harvester.yaml or ~/.config/plant-harvester/plant-harvester.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("plant-harvester")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "plant-harvester"))
		}
	}

	viper.SetEnvPrefix("PLANT_HARVESTER")
	viper.AutomaticEnv()
	for _, key := range configKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configureLogging installs the default slog logger on stderr.
func configureLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
