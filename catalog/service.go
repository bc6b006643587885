// Package catalog orchestrates the catalog maintenance use cases: scanning
// a working directory into the catalog, editing entries and linting.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/ports"
	"github.com/shareui/packit-repo/catalog/schema"
	"github.com/shareui/packit-repo/catalog/services"
	"github.com/shareui/packit-repo/catalog/values"
	"github.com/spf13/cast"
)

// Operation names used in change reports.
const (
	OpScan         = "scan"
	OpChange       = "change"
	OpDelete       = "delete"
	OpClearMissing = "clear-missing"
	OpEdit         = "edit"
	OpRegenerate   = "regenerate"
)

// EditableFields can be changed with Edit. Only fields already present on
// the entry are editable.
var EditableFields = []string{
	entities.FieldName, entities.FieldAuthor, entities.FieldVersion, entities.FieldState,
	entities.FieldIcon, entities.FieldMinVersion, "suspicious", entities.FieldLink,
}

var (
	// ErrDeclined is returned when the operator declines a confirmation.
	ErrDeclined = errors.New("operation declined")

	// ErrNotEditable is returned for fields outside EditableFields or absent from the entry.
	ErrNotEditable = errors.New("field not editable")

	// ErrPluginFileNotFound is returned when a named plugin file does not exist.
	ErrPluginFileNotFound = errors.New("plugin file not found")
)

// Config holds the paths and policy flags of a CatalogService.
type Config struct {
	CatalogPath    string
	WorkingDir     string
	BackupDir      string
	CreateBackup   bool
	HashTracking   bool
	AllowDowngrade bool
}

// CatalogService coordinates the reconciliation core with storage, prompts,
// backups and logs.
type CatalogService struct {
	cfg        Config
	repository ports.CatalogRepository
	scanner    ports.PluginScanner
	source     ports.MetadataSource
	builder    *services.EntryBuilder
	decisions  ports.DecisionStrategy
	backups    ports.BackupSink
	logs       ports.LogSink
	linter     *schema.Linter
	logger     *slog.Logger
}

// CatalogServiceOption configures a CatalogService.
type CatalogServiceOption func(*CatalogService)

// WithDecisions sets the confirmation and conflict strategy.
func WithDecisions(d ports.DecisionStrategy) CatalogServiceOption {
	return func(s *CatalogService) { s.decisions = d }
}

// WithBackupSink sets the backup sink.
func WithBackupSink(b ports.BackupSink) CatalogServiceOption {
	return func(s *CatalogService) { s.backups = b }
}

// WithLogSink sets the change log sink.
func WithLogSink(l ports.LogSink) CatalogServiceOption {
	return func(s *CatalogService) { s.logs = l }
}

// WithLinter sets the linter used by Lint.
func WithLinter(l *schema.Linter) CatalogServiceOption {
	return func(s *CatalogService) { s.linter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CatalogServiceOption {
	return func(s *CatalogService) { s.logger = l }
}

// NewCatalogService creates a catalog service. Repository, scanner, source
// and builder are required dependencies.
func NewCatalogService(
	cfg Config,
	repository ports.CatalogRepository,
	scanner ports.PluginScanner,
	source ports.MetadataSource,
	builder *services.EntryBuilder,
	opts ...CatalogServiceOption,
) *CatalogService {
	s := &CatalogService{
		cfg:        cfg,
		repository: repository,
		scanner:    scanner,
		source:     source,
		builder:    builder,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the service configuration.
func (s *CatalogService) Config() Config {
	return s.cfg
}

func (s *CatalogService) reconciler() *services.Reconciler {
	opts := []services.ReconcilerOption{
		services.WithHashTracking(s.cfg.HashTracking),
		services.WithAllowDowngrade(s.cfg.AllowDowngrade),
		services.WithLogger(s.logger),
	}
	if s.decisions != nil {
		opts = append(opts, services.WithConfirmer(s.decisions), services.WithConflictDecider(s.decisions))
	}
	return services.NewReconciler(s.source, s.builder, opts...)
}

func (s *CatalogService) scan(ctx context.Context) (*entities.Catalog, []string, error) {
	catalog, err := s.repository.Load(ctx, s.cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load catalog: %w", err)
	}
	paths, err := s.scanner.Scan(ctx, s.cfg.WorkingDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning working directory: %w", err)
	}
	s.logger.Debug("scanned working directory", "dir", s.cfg.WorkingDir, "files", len(paths))
	return catalog, paths, nil
}

// ScanApply reconciles the working directory into the catalog and saves it
// when anything was added or updated. On a save failure the merged result
// is still returned along with the error.
func (s *CatalogService) ScanApply(ctx context.Context) (*services.Result, error) {
	catalog, paths, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler().Apply(ctx, catalog, paths)
	if err != nil {
		return nil, err
	}
	if !result.Changed() {
		return result, nil
	}
	if err := s.commit(ctx, result.Catalog, result.Report(OpScan)); err != nil {
		return result, err
	}
	s.logger.Info("catalog updated",
		"added", len(result.Added),
		"updated", len(result.Updated),
		"skipped", result.Skipped,
		"total", result.Catalog.Len())
	return result, nil
}

// SaveResult saves an already merged scan result: backup, save and change
// log, as ScanApply does. It retries a save that failed without rescanning
// or asking again.
func (s *CatalogService) SaveResult(ctx context.Context, result *services.Result) error {
	if result == nil || result.Catalog == nil {
		return errors.New("nothing to save")
	}
	if err := s.commit(ctx, result.Catalog, result.Report(OpScan)); err != nil {
		return err
	}
	s.logger.Info("catalog saved", "total", result.Catalog.Len())
	return nil
}

// Status classifies the working directory against the catalog without
// prompting or writing.
func (s *CatalogService) Status(ctx context.Context) (*services.Result, error) {
	catalog, paths, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	return s.reconciler().Status(ctx, catalog, paths)
}

// Change rebuilds the entry for one plugin file in the working directory.
// The plugin must already be in the catalog.
func (s *CatalogService) Change(ctx context.Context, filename string) (*entities.UpdatedEntry, error) {
	catalog, err := s.repository.Load(ctx, s.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load catalog: %w", err)
	}

	path := filepath.Join(s.cfg.WorkingDir, filename)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPluginFileNotFound, path)
	}
	rec, err := s.source.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if rec.Failed() {
		return nil, fmt.Errorf("reading %s: %s", filename, rec.Err)
	}

	idx, existing := catalog.Find(rec.ID)
	if existing == nil {
		return nil, &entities.PluginNotFoundError{ID: rec.ID}
	}
	entry := s.builder.Build(ctx, rec)
	if err := catalog.Replace(idx, entry); err != nil {
		return nil, err
	}

	updated := entities.UpdatedEntry{Entry: entry, PreviousVersion: existing.Version()}
	report := &entities.ChangeReport{Operation: OpChange, Updated: []entities.UpdatedEntry{updated}, Total: catalog.Len()}
	if err := s.commit(ctx, catalog, report); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes one entry after confirmation.
func (s *CatalogService) Delete(ctx context.Context, id string) (*entities.PluginEntry, error) {
	catalog, err := s.repository.Load(ctx, s.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load catalog: %w", err)
	}
	_, existing := catalog.Find(id)
	if existing == nil {
		return nil, &entities.PluginNotFoundError{ID: id}
	}

	ok, err := s.confirm(ctx, entities.Confirmation{
		Kind:    entities.ConfirmDelete,
		ID:      id,
		Message: fmt.Sprintf("Delete %s (%s)?", existing.Name(), id),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeclined
	}

	removed, err := catalog.Remove(id)
	if err != nil {
		return nil, err
	}
	report := &entities.ChangeReport{Operation: OpDelete, Deleted: []*entities.PluginEntry{removed}, Total: catalog.Len()}
	if err := s.commit(ctx, catalog, report); err != nil {
		return nil, err
	}
	return removed, nil
}

// ClearMissing removes, after one confirmation, every entry whose file is
// not in the working directory. It returns nil when nothing is missing.
func (s *CatalogService) ClearMissing(ctx context.Context) ([]*entities.PluginEntry, error) {
	catalog, paths, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.reconciler().Status(ctx, catalog, paths)
	if err != nil {
		return nil, err
	}
	if len(status.MissingIDs) == 0 {
		return nil, nil
	}

	ok, err := s.confirm(ctx, entities.Confirmation{
		Kind:    entities.ConfirmClear,
		Message: fmt.Sprintf("Remove %d missing plugin(s)?", len(status.MissingIDs)),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeclined
	}

	removed := catalog.RemoveIDs(status.MissingIDs)
	report := &entities.ChangeReport{Operation: OpClearMissing, Deleted: removed, Total: catalog.Len()}
	if err := s.commit(ctx, catalog, report); err != nil {
		return nil, err
	}
	return removed, nil
}

// Missing lists entries whose files are absent, without changing anything.
func (s *CatalogService) Missing(ctx context.Context) ([]*entities.PluginEntry, error) {
	catalog, paths, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.reconciler().Status(ctx, catalog, paths)
	if err != nil {
		return nil, err
	}
	var out []*entities.PluginEntry
	for _, id := range status.MissingIDs {
		if _, e := catalog.Find(id); e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entry returns one catalog entry.
func (s *CatalogService) Entry(ctx context.Context, id string) (*entities.PluginEntry, error) {
	catalog, err := s.repository.Load(ctx, s.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load catalog: %w", err)
	}
	_, entry := catalog.Find(id)
	if entry == nil {
		return nil, &entities.PluginNotFoundError{ID: id}
	}
	return entry, nil
}

// Edit sets existing editable fields of one entry. Blank values are skipped.
func (s *CatalogService) Edit(ctx context.Context, id string, changes map[string]string) (*entities.PluginEntry, error) {
	catalog, err := s.repository.Load(ctx, s.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load catalog: %w", err)
	}
	_, entry := catalog.Find(id)
	if entry == nil {
		return nil, &entities.PluginNotFoundError{ID: id}
	}

	for field := range changes {
		if !slices.Contains(EditableFields, field) || !entry.Has(field) {
			return nil, fmt.Errorf("%w: %q", ErrNotEditable, field)
		}
	}

	changed := false
	for _, field := range EditableFields {
		value, ok := changes[field]
		if !ok || value == "" {
			continue
		}
		switch field {
		case "suspicious":
			b, err := cast.ToBoolE(value)
			if err != nil {
				return nil, fmt.Errorf("suspicious: %w", err)
			}
			if err := entry.Set(field, b); err != nil {
				return nil, err
			}
		case entities.FieldVersion:
			if _, err := values.CompareVersions(value, value); err != nil {
				return nil, err
			}
			entry.SetString(field, value)
		default:
			entry.SetString(field, value)
		}
		changed = true
	}
	if !changed {
		return entry, nil
	}

	report := &entities.ChangeReport{Operation: OpEdit, Total: catalog.Len()}
	if err := s.commit(ctx, catalog, report); err != nil {
		return nil, err
	}
	return entry, nil
}

// Sort orders the catalog by name, id or version and saves it.
func (s *CatalogService) Sort(ctx context.Context, by string) error {
	catalog, err := s.repository.Load(ctx, s.cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("cannot load catalog: %w", err)
	}
	if err := catalog.Sort(by); err != nil {
		return err
	}
	return s.commit(ctx, catalog, nil)
}

// ResetKey removes a field from every entry. Nothing is written when no
// entry had the field.
func (s *CatalogService) ResetKey(ctx context.Context, key string) (int, error) {
	catalog, err := s.repository.Load(ctx, s.cfg.CatalogPath)
	if err != nil {
		return 0, fmt.Errorf("cannot load catalog: %w", err)
	}
	count, err := catalog.ResetKey(key)
	if err != nil || count == 0 {
		return count, err
	}
	return count, s.commit(ctx, catalog, nil)
}

// Regenerate replaces the plugin list with entries rebuilt from the working
// directory, after confirmation. Repository metadata is kept. Files whose id
// was already produced by an earlier file are reported as failures.
func (s *CatalogService) Regenerate(ctx context.Context) (*services.Result, error) {
	ok, err := s.confirm(ctx, entities.Confirmation{
		Kind:    entities.ConfirmRegenerate,
		Message: "This will regenerate the entire catalog from files. Continue?",
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeclined
	}

	catalog, paths, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	result := &services.Result{Catalog: catalog}
	catalog.Plugins = nil
	for _, path := range paths {
		rec, err := s.source.Extract(ctx, path)
		if err != nil {
			return nil, err
		}
		if rec.Failed() {
			result.Failures = append(result.Failures, services.Failure{Path: path, Reason: rec.Err})
			continue
		}
		entry := s.builder.Build(ctx, rec)
		if err := catalog.Insert(entry); err != nil {
			result.Failures = append(result.Failures, services.Failure{Path: path, Reason: err.Error()})
			continue
		}
		result.Added = append(result.Added, entry)
	}

	report := &entities.ChangeReport{Operation: OpRegenerate, Added: result.Added, Total: catalog.Len()}
	if err := s.commit(ctx, catalog, report); err != nil {
		return result, err
	}
	return result, nil
}

// Init creates an empty catalog when none exists and reports whether it did.
func (s *CatalogService) Init(ctx context.Context) (bool, error) {
	exists, err := s.repository.Exists(ctx, s.cfg.CatalogPath)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.repository.Save(ctx, entities.NewCatalog(), s.cfg.CatalogPath); err != nil {
		return false, err
	}
	return true, nil
}

// Lint validates the catalog file against the schema and semantic rules.
func (s *CatalogService) Lint(ctx context.Context) (*schema.Report, error) {
	data, err := os.ReadFile(s.cfg.CatalogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &entities.CatalogNotFoundError{Path: s.cfg.CatalogPath}
		}
		return nil, err
	}
	linter := s.linter
	if linter == nil {
		if linter, err = schema.NewLinter(); err != nil {
			return nil, err
		}
	}
	return linter.Lint(data)
}

func (s *CatalogService) confirm(ctx context.Context, c entities.Confirmation) (bool, error) {
	if s.decisions == nil {
		return c.Default, nil
	}
	return s.decisions.Confirm(ctx, c)
}

// commit backs up the current file, saves the catalog and writes the change
// report. A log failure is logged, not returned, since the catalog is already saved.
func (s *CatalogService) commit(ctx context.Context, catalog *entities.Catalog, report *entities.ChangeReport) error {
	if s.backups != nil {
		path, err := s.backups.CreateBackup(ctx, s.cfg.CatalogPath, s.cfg.BackupDir, s.cfg.CreateBackup)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		if path != "" {
			s.logger.Debug("catalog backed up", "path", path)
		}
	}
	if err := s.repository.Save(ctx, catalog, s.cfg.CatalogPath); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	if s.logs != nil && report != nil {
		if err := s.logs.WriteReport(ctx, report); err != nil {
			s.logger.Warn("failed to write change log", "error", err)
		}
	}
	return nil
}
