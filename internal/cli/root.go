// Package cli assembles the cobra command tree and the shared
// config/store/orchestrator wiring every subcommand needs.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/encheres-immo/scraper/internal/config"
	"github.com/encheres-immo/scraper/internal/logging"
	"github.com/encheres-immo/scraper/internal/orchestrator"
	"github.com/encheres-immo/scraper/internal/store"
)

var (
	flagConfigPath string
	flagDataPath   string
	flagLogLevel   string
)

// Execute builds and runs the root command; main.go's only job is to
// call this and translate a returned error into exit code 1.
func Execute() error {
	root := newRootCmd()
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scraper",
		Short: "Crawl and track French judicial real-estate auctions",
		// main.go prints the returned error itself so a cooperative
		// cancellation is not reported as "Error: …" on its way to exit 0.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetLevel(flagLogLevel)
		},
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "config.json", "path to a JSON config file (defaults applied when absent)")
	root.PersistentFlags().StringVar(&flagDataPath, "data-path", "", "override the configured data directory")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "INFO", "DEBUG, INFO, WARNING, or ERROR")

	root.AddCommand(
		newIncrementalCmd(),
		newFullCmd(),
		newHistoryCmd(),
		newBackfillCmd(),
		newMapBackfillCmd(),
		newSurfaceBackfillCmd(),
		newDaemonCmd(),
		newProgressCmd(),
		newCancelCmd(),
	)
	return root
}

// loadConfig applies --config then --data-path. A missing or unreadable
// config file is logged, not fatal — the defaults are enough to run.
func loadConfig() *config.Config {
	cfg := config.Defaults()
	if flagConfigPath != "" {
		loaded, err := config.Load(flagConfigPath)
		if err != nil {
			log.Printf("config: could not read %s, using defaults: %v", flagConfigPath, err)
		} else {
			cfg = loaded
		}
	}
	if flagDataPath != "" {
		cfg.DataPath = flagDataPath
	}
	return cfg
}

// buildOrchestrator loads config, ensures the data directory and store
// exist, and wires an Orchestrator around them. Callers must close the
// returned Store.
func buildOrchestrator() (*orchestrator.Orchestrator, *store.Store, *config.Config, error) {
	cfg := loadConfig()
	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	return orchestrator.New(cfg, st), st, cfg, nil
}
