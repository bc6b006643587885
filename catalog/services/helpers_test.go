package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/services"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource serves records keyed by path.
type fakeSource struct {
	records map[string]*entities.MetadataRecord
	errs    map[string]error
	calls   []string
}

func newFakeSource(recs ...*entities.MetadataRecord) *fakeSource {
	s := &fakeSource{records: map[string]*entities.MetadataRecord{}, errs: map[string]error{}}
	for _, r := range recs {
		s.records[r.FilePath] = r
	}
	return s
}

func (s *fakeSource) paths() []string {
	var out []string
	for p := range s.records {
		out = append(out, p)
	}
	return out
}

func (s *fakeSource) Extract(_ context.Context, path string) (*entities.MetadataRecord, error) {
	s.calls = append(s.calls, path)
	if err, ok := s.errs[path]; ok {
		return nil, err
	}
	rec, ok := s.records[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	cp := *rec
	return &cp, nil
}

// scripted answers confirmations and conflicts from queues, falling back to defaults.
type scripted struct {
	confirms      []bool
	resolutions   map[string]entities.Resolution
	asked         []entities.Confirmation
	conflictsSeen []entities.Conflict
}

func (s *scripted) Confirm(_ context.Context, c entities.Confirmation) (bool, error) {
	s.asked = append(s.asked, c)
	if len(s.confirms) == 0 {
		return c.Default, nil
	}
	ans := s.confirms[0]
	s.confirms = s.confirms[1:]
	return ans, nil
}

func (s *scripted) ResolveConflict(_ context.Context, c entities.Conflict) (entities.Resolution, error) {
	s.conflictsSeen = append(s.conflictsSeen, c)
	if r, ok := s.resolutions[c.Field]; ok {
		return r, nil
	}
	return entities.Resolution{Choice: entities.TakeNew}, nil
}

func record(id, version, path, hash string) *entities.MetadataRecord {
	return &entities.MetadataRecord{
		ID:       id,
		Name:     "Plugin " + id,
		Author:   "@dev",
		Version:  version,
		State:    "release",
		FilePath: path,
		FileHash: hash,
	}
}

func newBuilder() *services.EntryBuilder {
	return services.NewEntryBuilder(services.BuildOptions{
		RawDirURL: "https://raw.example.com/repo/main/plugins",
		AddHash:   true,
	}).WithLogger(testLogger())
}

func parseCatalog(t *testing.T, raw string) *entities.Catalog {
	t.Helper()
	c, err := entities.ParseCatalog([]byte(raw))
	require.NoError(t, err)
	return c
}

func entryJSON(t *testing.T, e *entities.PluginEntry) string {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return string(b)
}
