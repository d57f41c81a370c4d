// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads configuration, sets up logging and opens the SQLite trip store

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/rotograma/internal/config"
	"github.com/harper/rotograma/internal/storage"
	"github.com/spf13/cobra"
)

var (
	db      storage.Repository
	cfg     = &config.Config{}
	logger  = slog.New(slog.DiscardHandler)
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rotograma",
	Short: "Record vehicle route surveys",
	Long: `
██████╗  ██████╗ ████████╗ ██████╗  ██████╗ ██████╗  █████╗ ███╗   ███╗ █████╗
██╔══██╗██╔═══██╗╚══██╔══╝██╔═══██╗██╔════╝ ██╔══██╗██╔══██╗████╗ ████║██╔══██╗
██████╔╝██║   ██║   ██║   ██║   ██║██║  ███╗██████╔╝███████║██╔████╔██║███████║
██╔══██╗██║   ██║   ██║   ██║   ██║██║   ██║██╔══██╗██╔══██║██║╚██╔╝██║██╔══██║
██║  ██║╚██████╔╝   ██║   ╚██████╔╝╚██████╔╝██║  ██║██║  ██║██║ ╚═╝ ██║██║  ██║
╚═╝  ╚═╝ ╚═════╝    ╚═╝    ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝╚═╝  ╚═╝

      Record a trip's track, video and labelled map captures

Examples:
  rotograma record --capture "school zone" --capture "bridge"
  rotograma list
  rotograma show 0b7f5a52
  rotograma export 0b7f5a52 --format gpx`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded
		logger = newLogger(cfg.GetLogLevel(), verbose)

		db, err = cfg.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("storage opened", "data_dir", cfg.GetDataDir())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

// newLogger builds a slog logger backed by a charm log handler on stderr.
func newLogger(level string, verbose bool) *slog.Logger {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "rotograma",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	handler.SetLevel(lvl)
	return slog.New(handler)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
