package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupTimeLayout is the timestamp embedded in backup file names.
const BackupTimeLayout = "20060102_150405"

// FileBackupSink implements ports.BackupSink by copying the catalog file.
type FileBackupSink struct {
	now func() time.Time
}

// NewFileBackupSink creates a backup sink using the wall clock.
func NewFileBackupSink() *FileBackupSink {
	return &FileBackupSink{now: time.Now}
}

// WithClock returns a copy of the sink that reads time from now.
func (b *FileBackupSink) WithClock(now func() time.Time) *FileBackupSink {
	return &FileBackupSink{now: now}
}

// CreateBackup copies catalogPath to backupDir as <stem>_<timestamp><ext>
// and returns the written path. It does nothing when disabled or when the
// catalog does not exist yet.
func (b *FileBackupSink) CreateBackup(ctx context.Context, catalogPath, backupDir string, enabled bool) (string, error) {
	if !enabled {
		return "", nil
	}
	src, err := os.Open(catalogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("opening catalog for backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(catalogPath), "backups")
	}
	if err := os.MkdirAll(backupDir, 0o750); err != nil {
		return "", fmt.Errorf("creating backup directory %q: %w", backupDir, err)
	}

	base := filepath.Base(catalogPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := b.now().Format(BackupTimeLayout)

	dst, path, err := createUnique(backupDir, stem+"_"+stamp, ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("writing backup %q: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("closing backup %q: %w", path, err)
	}
	return path, nil
}

// createUnique creates name+ext in dir, adding a counter when a backup from
// the same second already exists.
func createUnique(dir, name, ext string) (*os.File, string, error) {
	for i := 0; i < 100; i++ {
		candidate := name + ext
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", name, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", fmt.Errorf("creating backup %q: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("too many backups named %s in %q", name, dir)
}
