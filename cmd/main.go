package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ticktrack/ticktrack/storage"
)

var rootCmd = &cobra.Command{
	Use:          "ticktrack",
	Short:        "TRIAS trip tracker",
	Long:         "Tracks trips at TRIAS stations and records their realtime irregularities",
	SilenceUsage: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(departuresCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// Opens Postgres for postgres:// URLs, and an on disk SQLite database
// for anything else.
func openStorage(database string) (storage.Storage, error) {
	if strings.HasPrefix(database, "postgres://") || strings.HasPrefix(database, "postgresql://") {
		s, err := storage.NewPSQLStorage(database, false)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return s, nil
	}

	s, err := storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Path: database})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	return s, nil
}
