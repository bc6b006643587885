// Package ports defines the collaborator interfaces of the catalog core.
package ports

import (
	"context"

	"github.com/shareui/packit-repo/catalog/entities"
)

// CatalogRepository manages catalog persistence.
type CatalogRepository interface {
	Load(ctx context.Context, path string) (*entities.Catalog, error)
	Save(ctx context.Context, catalog *entities.Catalog, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// BackupSink writes a timestamp-named copy of the catalog before a save.
// It is a no-op when disabled or when the source does not exist.
type BackupSink interface {
	CreateBackup(ctx context.Context, catalogPath, backupDir string, enabled bool) (string, error)
}

// LogSink records human-readable change summaries.
type LogSink interface {
	WriteReport(ctx context.Context, report *entities.ChangeReport) error
}
