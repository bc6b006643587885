package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shareui/packit-repo/catalog"
	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/services"
	"github.com/shareui/packit-repo/catalog/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `{"repometa":{"name":"test"},"plugins":[` +
	`{"id":"alpha","name":"Alpha","author":"@dev","version":"1.0.0","state":"release","icon":"a/1","link":"https://raw.example.com/p/alpha.plugin","hash":"aa01","suspicious":false},` +
	`{"id":"gone","name":"Gone","version":"0.1","link":"https://raw.example.com/p/gone.plugin"}` +
	`]}`

type fixture struct {
	repo      *catalog.MockRepository
	scanner   *catalog.MockScanner
	source    *catalog.MockSource
	backups   *catalog.MockBackupSink
	logs      *catalog.MockLogSink
	decisions *catalog.MockDecisions
	workDir   string
}

func rec(id, version, path, hash string) *entities.MetadataRecord {
	return &entities.MetadataRecord{
		ID: id, Name: "Plugin " + id, Author: "@dev", Version: version, State: "release",
		FilePath: path, FileHash: hash,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := entities.ParseCatalog([]byte(seed))
	require.NoError(t, err)
	return &fixture{
		repo:      &catalog.MockRepository{Catalog: c, Present: true},
		scanner:   &catalog.MockScanner{},
		source:    &catalog.MockSource{Records: map[string]*entities.MetadataRecord{}},
		backups:   &catalog.MockBackupSink{Path: "/b/plugins_x.json"},
		logs:      &catalog.MockLogSink{},
		decisions: &catalog.MockDecisions{Answer: true},
		workDir:   t.TempDir(),
	}
}

func (f *fixture) add(r *entities.MetadataRecord) {
	f.source.Records[r.FilePath] = r
	f.scanner.Paths = append(f.scanner.Paths, r.FilePath)
}

func (f *fixture) service(cfg catalog.Config) *catalog.CatalogService {
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = "/r/plugins.json"
	}
	cfg.WorkingDir = f.workDir
	builder := services.NewEntryBuilder(services.BuildOptions{
		RawDirURL: "https://raw.example.com/p",
		AddHash:   true,
	}).WithLogger(catalog.NewTestLogger())
	return catalog.NewCatalogService(cfg, f.repo, f.scanner, f.source, builder,
		catalog.WithBackupSink(f.backups),
		catalog.WithLogSink(f.logs),
		catalog.WithDecisions(f.decisions),
		catalog.WithLogger(catalog.NewTestLogger()),
	)
}

func TestCatalogService_ScanApply(t *testing.T) {
	t.Parallel()

	t.Run("new and upgraded plugins are saved and logged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.add(rec("alpha", "1.1.0", "/w/alpha.plugin", "aa02"))
		f.add(rec("beta", "1.0.0", "/w/beta.plugin", "bb01"))
		svc := f.service(catalog.Config{HashTracking: true, CreateBackup: true})

		res, err := svc.ScanApply(context.Background())
		require.NoError(t, err)
		assert.Len(t, res.Added, 1)
		assert.Len(t, res.Updated, 1)
		assert.Equal(t, []string{"gone"}, res.MissingIDs)

		assert.Equal(t, 1, f.repo.Saves)
		assert.Equal(t, "/r/plugins.json", f.repo.SavePath)
		assert.Equal(t, []string{"alpha", "gone", "beta"}, f.repo.Saved.IDs())
		assert.Equal(t, 1, f.backups.Called)
		require.Len(t, f.logs.Reports, 1)
		assert.Equal(t, catalog.OpScan, f.logs.Reports[0].Operation)
		assert.Equal(t, 3, f.logs.Reports[0].Total)
	})

	t.Run("no changes means no save", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.add(rec("alpha", "1.0.0", "/w/alpha.plugin", "aa01"))
		svc := f.service(catalog.Config{HashTracking: true})

		res, err := svc.ScanApply(context.Background())
		require.NoError(t, err)
		assert.False(t, res.Changed())
		assert.Zero(t, f.repo.Saves)
		assert.Zero(t, f.backups.Called)
		assert.Empty(t, f.logs.Reports)
	})

	t.Run("save failure returns result and error", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.SaveErr = errors.New("disk full")
		f.add(rec("beta", "1.0.0", "/w/beta.plugin", "bb01"))

		res, err := f.service(catalog.Config{}).ScanApply(context.Background())
		require.Error(t, err)
		assert.ErrorContains(t, err, "disk full")
		require.NotNil(t, res)
		assert.Len(t, res.Added, 1)
		assert.Empty(t, f.logs.Reports)
	})

	t.Run("failed save can be retried without rescanning", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.SaveErrs = []error{errors.New("disk full")}
		f.add(rec("beta", "1.0.0", "/w/beta.plugin", "bb01"))
		svc := f.service(catalog.Config{})

		res, err := svc.ScanApply(context.Background())
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 0, f.repo.Saves)
		extracts := f.source.Calls
		asked := len(f.decisions.Asked)

		require.NoError(t, svc.SaveResult(context.Background(), res))
		assert.Equal(t, 1, f.repo.Saves)
		assert.Equal(t, []string{"alpha", "gone", "beta"}, f.repo.Saved.IDs())
		assert.Equal(t, extracts, f.source.Calls, "no second extraction")
		assert.Len(t, f.decisions.Asked, asked, "no second prompt")
		require.Len(t, f.logs.Reports, 1)
		assert.Equal(t, catalog.OpScan, f.logs.Reports[0].Operation)
		assert.Equal(t, 2, f.backups.Called)
	})

	t.Run("save result rejects empty result", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		assert.Error(t, f.service(catalog.Config{}).SaveResult(context.Background(), nil))
		assert.Equal(t, 0, f.repo.Saves)
	})

	t.Run("missing catalog", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.Catalog = nil

		_, err := f.service(catalog.Config{}).ScanApply(context.Background())
		assert.ErrorIs(t, err, entities.ErrCatalogNotFound)
	})

	t.Run("backup failure aborts the save", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.backups.Err = errors.New("read-only")
		f.add(rec("beta", "1.0.0", "/w/beta.plugin", "bb01"))

		_, err := f.service(catalog.Config{CreateBackup: true}).ScanApply(context.Background())
		require.Error(t, err)
		assert.Zero(t, f.repo.Saves)
	})
}

func TestCatalogService_Status(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.add(rec("alpha", "1.0.0", "/w/alpha.plugin", "other"))
	f.add(rec("beta", "1.0.0", "/w/beta.plugin", "bb01"))

	res, err := f.service(catalog.Config{HashTracking: true}).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count(services.OutcomeNew))
	assert.Equal(t, 1, res.Count(services.OutcomeUnchanged))
	assert.Zero(t, f.repo.Saves)
	assert.Empty(t, f.decisions.Asked)
}

func TestCatalogService_Change(t *testing.T) {
	t.Parallel()

	t.Run("rebuilds known plugin", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		path := filepath.Join(f.workDir, "alpha.plugin")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		f.source.Records[path] = rec("alpha", "2.0.0", path, "aa03")

		updated, err := f.service(catalog.Config{}).Change(context.Background(), "alpha.plugin")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", updated.PreviousVersion)
		assert.Equal(t, "2.0.0", updated.Entry.Version())
		assert.Equal(t, []string{"alpha", "gone"}, f.repo.Saved.IDs())
		assert.False(t, updated.Entry.Has(entities.FieldIcon), "change is a plain rebuild")
	})

	t.Run("unknown plugin id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		path := filepath.Join(f.workDir, "new.plugin")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		f.source.Records[path] = rec("new", "1.0", path, "h")

		_, err := f.service(catalog.Config{}).Change(context.Background(), "new.plugin")
		assert.ErrorIs(t, err, entities.ErrPluginNotFound)
		assert.Zero(t, f.repo.Saves)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.service(catalog.Config{}).Change(context.Background(), "nope.plugin")
		assert.ErrorIs(t, err, catalog.ErrPluginFileNotFound)
	})
}

func TestCatalogService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("confirmed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		removed, err := f.service(catalog.Config{}).Delete(context.Background(), "gone")
		require.NoError(t, err)
		assert.Equal(t, "gone", removed.ID())
		assert.Equal(t, []string{"alpha"}, f.repo.Saved.IDs())
		require.Len(t, f.decisions.Asked, 1)
		assert.Equal(t, entities.ConfirmDelete, f.decisions.Asked[0].Kind)
		require.Len(t, f.logs.Reports, 1)
		assert.Len(t, f.logs.Reports[0].Deleted, 1)
	})

	t.Run("declined", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.decisions.Answer = false
		_, err := f.service(catalog.Config{}).Delete(context.Background(), "gone")
		assert.ErrorIs(t, err, catalog.ErrDeclined)
		assert.Zero(t, f.repo.Saves)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.service(catalog.Config{}).Delete(context.Background(), "zzz")
		assert.ErrorIs(t, err, entities.ErrPluginNotFound)
		assert.Empty(t, f.decisions.Asked)
	})
}

func TestCatalogService_ClearMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.add(rec("alpha", "1.0.0", "/w/alpha.plugin", "aa01"))
	svc := f.service(catalog.Config{HashTracking: true})

	missing, err := svc.Missing(context.Background())
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "gone", missing[0].ID())

	removed, err := svc.ClearMissing(context.Background())
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, []string{"alpha"}, f.repo.Saved.IDs())

	again, err := svc.ClearMissing(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, 1, f.repo.Saves)
}

func TestCatalogService_Edit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		changes map[string]string
		wantErr error
		check   func(t *testing.T, e *entities.PluginEntry)
	}{
		{
			name:    "name and version",
			changes: map[string]string{"name": "Alpha 2", "version": "1.5"},
			check: func(t *testing.T, e *entities.PluginEntry) {
				assert.Equal(t, "Alpha 2", e.Name())
				assert.Equal(t, "1.5", e.Version())
			},
		},
		{
			name:    "suspicious is a boolean",
			changes: map[string]string{"suspicious": "true"},
			check: func(t *testing.T, e *entities.PluginEntry) {
				raw, _ := e.Get("suspicious")
				assert.JSONEq(t, "true", string(raw))
			},
		},
		{
			name:    "blank values skipped",
			changes: map[string]string{"author": ""},
			check: func(t *testing.T, e *entities.PluginEntry) {
				assert.Equal(t, "@dev", e.Author())
			},
		},
		{name: "absent field", changes: map[string]string{"min_version": "1.0"}, wantErr: catalog.ErrNotEditable},
		{name: "protected field", changes: map[string]string{"id": "x"}, wantErr: catalog.ErrNotEditable},
		{name: "invalid version", changes: map[string]string{"version": "1.a"}, wantErr: values.ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			entry, err := f.service(catalog.Config{}).Edit(context.Background(), "alpha", tt.changes)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, f.repo.Saves)
				return
			}
			require.NoError(t, err)
			tt.check(t, entry)
		})
	}
}

func TestCatalogService_SortAndResetKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	svc := f.service(catalog.Config{})

	require.NoError(t, svc.Sort(ctx, entities.SortByName))
	assert.Equal(t, []string{"alpha", "gone"}, f.repo.Saved.IDs())
	assert.Error(t, svc.Sort(ctx, "size"))

	n, err := svc.ResetKey(ctx, "hash")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, f.repo.Saves)

	n, err = svc.ResetKey(ctx, "hash")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, f.repo.Saves)

	_, err = svc.ResetKey(ctx, "id")
	assert.ErrorIs(t, err, entities.ErrProtectedField)
}

func TestCatalogService_Regenerate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.add(rec("beta", "1.0.0", "/w/beta.plugin", "bb01"))
	f.add(rec("beta", "1.1.0", "/w/beta2.plugin", "bb02"))
	f.scanner.Paths = append(f.scanner.Paths, "/w/broken.plugin")

	res, err := f.service(catalog.Config{}).Regenerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Len(t, res.Failures, 2)
	assert.Equal(t, []string{"beta"}, f.repo.Saved.IDs())
	assert.JSONEq(t, `{"name":"test"}`, string(f.repo.Saved.Repometa()))
}

func TestCatalogService_InitAndLint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.repo.Present = false
	svc := f.service(catalog.Config{})
	created, err := svc.Init(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Init(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	path := filepath.Join(t.TempDir(), "plugins.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))
	report, err := f.service(catalog.Config{CatalogPath: path}).Lint(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%v", report.Issues)

	_, err = f.service(catalog.Config{CatalogPath: filepath.Join(t.TempDir(), "none.json")}).Lint(ctx)
	assert.ErrorIs(t, err, entities.ErrCatalogNotFound)
}
