package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitcontest/xbridge/internal/config"
	"github.com/gitcontest/xbridge/internal/db"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing database")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize xbridge for first-time use",
	Long: `Initialize xbridge by creating the ~/.xbridge/ directory, a sample
config file, and the database.

This command:
- Writes a commented sample config file if none exists
- Creates xbridge.db with the database schema
- Runs any pending migrations

Use --force to overwrite an existing database.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

type initResult struct {
	Config   string `json:"config"`
	Database string `json:"database"`
	Created  bool   `json:"created"`
	Schema   int64  `json:"schema_version,omitempty"`
}

func runInit(cmd *cobra.Command, args []string) error {
	path := databasePath()

	if db.Exists(path) && !initForce {
		display := path
		if display == "" {
			display = db.DefaultDBPath
		}
		return fmt.Errorf("database already exists at %s (use --force to overwrite)", display)
	}

	// A config file that already exists is left alone.
	confPath := configPath()
	if _, err := os.Stat(confPath); os.IsNotExist(err) {
		if err := config.WriteConfigFile(confPath); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	if initForce && db.Exists(path) {
		if err := db.Delete(path); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	database, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, err := database.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	result := initResult{
		Config:   confPath,
		Database: database.Path(),
		Created:  true,
		Schema:   version,
	}
	if jsonOut {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Initialized xbridge database at %s\n", result.Database)
	fmt.Printf("Config file: %s\n", result.Config)
	fmt.Printf("Schema version: %d\n", result.Schema)
	return nil
}
