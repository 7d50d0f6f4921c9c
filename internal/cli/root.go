// Package cli implements the xbridge command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gitcontest/xbridge/internal/config"
)

// Version information (set at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global flags
var (
	cfgPath string
	dbPath  string
	jsonOut bool
	verbose bool
)

// Global configuration, loaded before any command runs.
var globalConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "xbridge",
	Short: "Event-driven bridge between source-control tickets and contest challenges",
	Long: `xbridge consumes issue and copilot-payment events from the message bus
and reconciles them with challenges on the contest platform.

It creates a challenge for every paid ticket, staffs it as members pick the
ticket up, and settles payment when an accepted fix is closed.

Use "xbridge init" to write the config file and database.
Use "xbridge run" to start the processor daemon.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		globalConfig, err = config.LoadFromPath(configPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (default ~/.xbridge/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (default ~/.xbridge/xbridge.db)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("xbridge %s (%s, %s)\n", Version, shortCommit(), shortDate()))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// configPath returns the config file path from the flag or the default.
func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultConfigPath()
}

// databasePath returns the database path from flags, config, or default.
// Priority: flag > env/config file > default.
func databasePath() string {
	if dbPath != "" {
		return dbPath
	}
	if globalConfig != nil {
		return globalConfig.DB
	}
	return "" // db.Open falls back to the default
}

// newLogger builds the process logger. Verbose mode lowers the level to
// debug; output is human-readable on a terminal, JSON otherwise.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var log zerolog.Logger
	if isTerminal() {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

func isTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func shortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

func shortDate() string {
	if len(BuildDate) >= 10 {
		return BuildDate[:10]
	}
	return BuildDate
}
