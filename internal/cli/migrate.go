package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitcontest/xbridge/internal/backup"
	"github.com/gitcontest/xbridge/internal/db"
)

var (
	migrateDown   bool
	migrateStatus bool
)

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recent migration")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Print the schema version without migrating")
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending database migrations",
	Long: `Apply any pending schema migrations to the xbridge database.

A rotating backup of the database file is taken first when backups are
enabled, so a failed migration can be rolled back by hand.

Use --down to roll back the most recent migration, or --status to print
the current schema version without changing anything.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := newLogger()
	path := databasePath()

	if !migrateStatus && db.Exists(path) {
		mgr := backup.NewManager(db.ResolvePath(path), globalConfig.Backup)
		backupPath, err := mgr.BackupIfNeeded()
		if err != nil {
			return fmt.Errorf("pre-migration backup failed: %w", err)
		}
		if backupPath != "" {
			log.Info().Str("path", backupPath).Msg("database backed up")
		}
	}

	database, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	switch {
	case migrateStatus:
		// version printed below
	case migrateDown:
		if err := database.MigrateDown(); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	default:
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	version, err := database.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Printf("Database at schema version %d\n", version)
	return nil
}
