// Package backup provides rotating database backups for xbridge.
//
// A backup is taken before schema migrations run, so a bad migration never
// eats the only copy of the reconciliation state. Backups are named after
// the database file: xbridge.db.bak.1, xbridge.db.bak.2, etc., where 1 is
// the most recent.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gitcontest/xbridge/internal/config"
)

// Manager handles database backup operations.
type Manager struct {
	dbPath    string
	backupDir string
	prefix    string
	cfg       config.BackupConfig
}

// NewManager creates a backup manager for the database at dbPath.
func NewManager(dbPath string, cfg config.BackupConfig) *Manager {
	backupDir := cfg.Path
	if backupDir == "" {
		backupDir = filepath.Dir(dbPath)
	}

	return &Manager{
		dbPath:    dbPath,
		backupDir: backupDir,
		prefix:    filepath.Base(dbPath) + ".bak.",
		cfg:       cfg,
	}
}

// BackupIfNeeded creates a backup when the newest existing one is older than
// the configured interval. Returns the path to the new backup, or empty
// string when no backup was needed.
func (m *Manager) BackupIfNeeded() (string, error) {
	if !m.cfg.Enabled {
		return "", nil
	}

	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", nil // nothing to back up
	}

	needed, err := m.isBackupNeeded()
	if err != nil {
		return "", fmt.Errorf("checking if backup needed: %w", err)
	}
	if !needed {
		return "", nil
	}

	backupPath, err := m.createBackup()
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	return backupPath, nil
}

func (m *Manager) isBackupNeeded() (bool, error) {
	backups, err := m.listBackups()
	if err != nil {
		return false, err
	}
	if len(backups) == 0 {
		return true, nil
	}

	// Backups are sorted newest first.
	info, err := os.Stat(backups[0])
	if err != nil {
		return false, fmt.Errorf("stat backup file: %w", err)
	}

	threshold := time.Duration(m.cfg.IntervalHours) * time.Hour
	return time.Since(info.ModTime()) > threshold, nil
}

// listBackups returns paths to existing backup files, sorted newest first.
func (m *Manager) listBackups() ([]string, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	type numbered struct {
		path   string
		number int
	}
	var backups []numbered
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, m.prefix) {
			continue
		}
		num, err := strconv.Atoi(strings.TrimPrefix(name, m.prefix))
		if err != nil {
			continue
		}
		backups = append(backups, numbered{
			path:   filepath.Join(m.backupDir, name),
			number: num,
		})
	}

	// 1 is the newest, so ascending order puts newest first.
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].number < backups[j].number
	})

	paths := make([]string, len(backups))
	for i, b := range backups {
		paths[i] = b.path
	}
	return paths, nil
}

func (m *Manager) createBackup() (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	if err := m.rotateBackups(); err != nil {
		return "", fmt.Errorf("rotating backups: %w", err)
	}

	backupPath := filepath.Join(m.backupDir, m.prefix+"1")
	if err := copyFile(m.dbPath, backupPath); err != nil {
		return "", fmt.Errorf("copying database: %w", err)
	}
	return backupPath, nil
}

// rotateBackups shifts bak.1 -> bak.2, bak.2 -> bak.3, etc., and deletes
// backups exceeding MaxCount. Processed oldest first to avoid overwriting.
func (m *Manager) rotateBackups() error {
	backups, err := m.listBackups()
	if err != nil {
		return err
	}

	for i := len(backups) - 1; i >= 0; i-- {
		path := backups[i]
		num, _ := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), m.prefix))

		newNum := num + 1
		if newNum > m.cfg.MaxCount {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("deleting old backup %s: %w", path, err)
			}
			continue
		}
		newPath := filepath.Join(m.backupDir, fmt.Sprintf("%s%d", m.prefix, newNum))
		if err := os.Rename(path, newPath); err != nil {
			return fmt.Errorf("renaming backup %s to %s: %w", path, newPath, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("syncing destination: %w", err)
	}
	return nil
}

// ListBackups returns the paths to all existing backup files, newest first.
func (m *Manager) ListBackups() ([]string, error) {
	return m.listBackups()
}

// BackupDir returns the directory where backups are stored.
func (m *Manager) BackupDir() string {
	return m.backupDir
}
