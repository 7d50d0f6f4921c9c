package db

import (
	"database/sql"
	"testing"
)

// NewTestDB opens a migrated in-memory SQLite database for a test. Each
// call gets its own database, so tests never share state or touch a file
// on disk.
func NewTestDB(t *testing.T) *DB {
	t.Helper()
	return &DB{DB: NewTestSqlDB(t), path: ":memory:"}
}

// NewTestSqlDB is NewTestDB for tests that hand the raw *sql.DB straight
// to a repo (NewIssueRepo and friends take *sql.DB, not *DB).
func NewTestSqlDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := Migrate(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return sqlDB
}
