package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reifydb-admin",
	Short:   "reifydb-admin - maintenance CLI for a ReifyDB data directory",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "", "bbolt data directory to operate on")
	rootCmd.PersistentFlags().String("config", "", "Path to a config YAML file (overrides --data-dir defaults)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(cdcCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
	diagnostic.SetInternalLogger(func(d *diagnostic.Diagnostic) {
		log.Logger.Error().Err(d).Msg("internal error")
	})
}

func dataDirFlag(cmd *cobra.Command) (string, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		return "", fmt.Errorf("--data-dir is required")
	}
	return dataDir, nil
}
