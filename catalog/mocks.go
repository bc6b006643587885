package catalog

import (
	"context"
	"io"
	"log/slog"

	"github.com/shareui/packit-repo/catalog/entities"
)

// MockRepository implements ports.CatalogRepository over an in-memory catalog.
type MockRepository struct {
	Catalog *entities.Catalog
	LoadErr error

	Saved    *entities.Catalog
	SavePath string
	SaveErr  error
	Saves    int
	// SaveErrs are returned by the first Save calls, one per call, before SaveErr applies.
	SaveErrs []error

	Present   bool
	ExistsErr error
}

func (m *MockRepository) Load(ctx context.Context, path string) (*entities.Catalog, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Catalog == nil {
		return nil, &entities.CatalogNotFoundError{Path: path}
	}
	return m.Catalog.Clone(), nil
}

func (m *MockRepository) Save(ctx context.Context, catalog *entities.Catalog, path string) error {
	if len(m.SaveErrs) > 0 {
		err := m.SaveErrs[0]
		m.SaveErrs = m.SaveErrs[1:]
		if err != nil {
			return err
		}
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	m.Saved = catalog
	m.SavePath = path
	m.Catalog = catalog.Clone()
	m.Present = true
	return nil
}

func (m *MockRepository) Exists(ctx context.Context, path string) (bool, error) {
	return m.Present, m.ExistsErr
}

// MockScanner implements ports.PluginScanner
type MockScanner struct {
	Paths []string
	Err   error
}

func (m *MockScanner) Scan(ctx context.Context, dir string) ([]string, error) {
	return m.Paths, m.Err
}

// MockSource implements ports.MetadataSource from records keyed by path.
// Unknown paths yield a failed record.
type MockSource struct {
	Records map[string]*entities.MetadataRecord
	Err     error
	Calls   int
}

func (m *MockSource) Extract(ctx context.Context, path string) (*entities.MetadataRecord, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	rec, ok := m.Records[path]
	if !ok {
		return entities.FailedRecord(path, "cannot read file"), nil
	}
	cp := *rec
	return &cp, nil
}

// MockBackupSink implements ports.BackupSink
type MockBackupSink struct {
	Path   string
	Err    error
	Called int
}

func (m *MockBackupSink) CreateBackup(ctx context.Context, catalogPath, backupDir string, enabled bool) (string, error) {
	m.Called++
	if m.Err != nil || !enabled {
		return "", m.Err
	}
	return m.Path, nil
}

// MockLogSink implements ports.LogSink
type MockLogSink struct {
	Reports []*entities.ChangeReport
	Err     error
}

func (m *MockLogSink) WriteReport(ctx context.Context, report *entities.ChangeReport) error {
	m.Reports = append(m.Reports, report)
	return m.Err
}

// MockDecisions implements ports.DecisionStrategy with fixed answers.
type MockDecisions struct {
	Answer     bool
	Resolution entities.Resolution
	Err        error
	Asked      []entities.Confirmation
}

func (m *MockDecisions) Confirm(ctx context.Context, c entities.Confirmation) (bool, error) {
	m.Asked = append(m.Asked, c)
	return m.Answer, m.Err
}

func (m *MockDecisions) ResolveConflict(ctx context.Context, c entities.Conflict) (entities.Resolution, error) {
	return m.Resolution, m.Err
}

// NewTestLogger creates a logger for tests that discards output.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
