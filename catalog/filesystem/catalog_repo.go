// Package filesystem provides file-based adapters for the catalog: the
// catalog store, the working directory scanner, digests, backups and logs.
package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shareui/packit-repo/catalog/entities"
)

// FileCatalogRepository implements ports.CatalogRepository on the local filesystem.
type FileCatalogRepository struct {
	logger *slog.Logger
	indent string
}

// CatalogRepositoryOption configures a FileCatalogRepository.
type CatalogRepositoryOption func(*FileCatalogRepository)

// WithRepositoryLogger sets the logger used for load warnings.
func WithRepositoryLogger(l *slog.Logger) CatalogRepositoryOption {
	return func(r *FileCatalogRepository) { r.logger = l }
}

// WithIndent sets the indentation used on save. The default is two spaces.
func WithIndent(indent string) CatalogRepositoryOption {
	return func(r *FileCatalogRepository) { r.indent = indent }
}

// NewFileCatalogRepository creates a new FileCatalogRepository.
func NewFileCatalogRepository(opts ...CatalogRepositoryOption) *FileCatalogRepository {
	r := &FileCatalogRepository{logger: slog.Default(), indent: "  "}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads and structurally validates the catalog at path.
func (r *FileCatalogRepository) Load(ctx context.Context, path string) (*entities.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &entities.CatalogNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	catalog, err := entities.ParseCatalog(data)
	if err != nil {
		var formatErr *entities.CatalogFormatError
		if errors.As(err, &formatErr) {
			formatErr.Path = path
		}
		return nil, err
	}

	if dups := catalog.DuplicateIDs(); len(dups) > 0 {
		r.logger.Warn("catalog contains duplicate plugin ids; lookups use the last entry",
			"path", path, "ids", dups)
	}
	return catalog, nil
}

// Save rewrites the whole catalog file. The content goes to a temporary
// file in the same directory first and is renamed over path, so a failed
// write leaves the previous file intact.
func (r *FileCatalogRepository) Save(ctx context.Context, catalog *entities.Catalog, path string) error {
	data, err := r.Encode(catalog)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing catalog: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	} else {
		_ = os.Chmod(tmpName, 0o644)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing catalog %q: %w", path, err)
	}
	return nil
}

// Encode renders the catalog the way Save writes it.
func (r *FileCatalogRepository) Encode(catalog *entities.Catalog) ([]byte, error) {
	raw, err := catalog.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding catalog: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", r.indent); err != nil {
		return nil, fmt.Errorf("formatting catalog: %w", err)
	}
	return buf.Bytes(), nil
}

// Exists checks if a catalog exists at the given path.
func (r *FileCatalogRepository) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
