package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/filesystem"
	"github.com/shareui/packit-repo/catalog/ports"
	"github.com/shareui/packit-repo/catalog/values"
)

// MaxPluginSize bounds plugin source files read for metadata.
const MaxPluginSize = 8 << 20

// Source implements ports.MetadataSource for plugin files, .elyx archives
// and unpacked plugin directories.
type Source struct {
	digester ports.PluginDigester
	keywords []string
	logger   *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithStateKeywords sets the release-state keywords used to parse versions.
func WithStateKeywords(keywords []string) SourceOption {
	return func(s *Source) { s.keywords = keywords }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SourceOption {
	return func(s *Source) { s.logger = l }
}

// NewSource creates a metadata source hashing content with digester.
func NewSource(digester ports.PluginDigester, opts ...SourceOption) *Source {
	s := &Source{
		digester: digester,
		keywords: values.DefaultStateKeywords,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract reads metadata from path. Problems with the file itself are
// reported through the record's Err; the error return is reserved for
// cancellation.
func (s *Source) Extract(ctx context.Context, path string) (*entities.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return entities.FailedRecord(path, err.Error()), nil
	}

	var (
		m    *Refmap
		hash string
	)
	switch {
	case info.IsDir():
		m, hash, err = s.readDir(ctx, path)
	case strings.EqualFold(filepath.Ext(path), ElyxExt):
		m, hash, err = s.readElyx(ctx, path)
	default:
		m, hash, err = s.readPlugin(path, info.Size())
	}
	if err != nil {
		s.logger.Debug("metadata extraction failed", "path", path, "error", err)
		return entities.FailedRecord(path, err.Error()), nil
	}
	return s.record(path, hash, m), nil
}

func (s *Source) readPlugin(path string, size int64) (*Refmap, string, error) {
	if size > MaxPluginSize {
		return nil, "", fmt.Errorf("file too large (%d bytes)", size)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return RefmapFromDunder(ParseDunder(data)), s.digester.DigestBytes(data), nil
}

func (s *Source) readElyx(ctx context.Context, path string) (*Refmap, string, error) {
	m, err := ReadElyxManifest(path)
	if err != nil {
		return nil, "", err
	}
	hash, err := s.digester.DigestFile(ctx, path)
	if err != nil {
		return nil, "", err
	}
	return m, hash, nil
}

func (s *Source) readDir(ctx context.Context, dir string) (*Refmap, string, error) {
	manifest, ok := filesystem.FindManifest(dir)
	if !ok {
		return nil, "", fmt.Errorf("no refmap found in %s", filepath.Base(dir))
	}
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil, "", err
	}
	m, err := ParseRefmap(filepath.Base(manifest), data)
	if err != nil {
		return nil, "", err
	}
	hash, err := s.digester.DigestDir(ctx, dir)
	if err != nil {
		return nil, "", err
	}
	return m, hash, nil
}

func (s *Source) record(path, hash string, m *Refmap) *entities.MetadataRecord {
	var missing []string
	if m.ID == "" {
		missing = append(missing, "id")
	}
	if m.Name == "" {
		missing = append(missing, "name")
	}
	if m.Version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return entities.FailedRecord(path, "missing required field(s): "+strings.Join(missing, ", "))
	}

	version, state := values.ParseVersion(m.Version, s.keywords)
	deps := m.Dependencies
	if deps == nil {
		deps = []string{}
	}
	return &entities.MetadataRecord{
		ID:           m.ID,
		Name:         m.Name,
		Author:       m.Author,
		Version:      version,
		State:        state,
		Icon:         m.Icon,
		MinVersion:   m.MinVersion,
		Description:  m.Description,
		Dependencies: deps,
		FilePath:     path,
		FileHash:     hash,
	}
}
