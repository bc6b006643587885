package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileStoreConfig holds configuration for the FileStore.
type fileStoreConfig struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     FileName,
		dirPerm:  0o755,
		filePerm: 0o600,
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the preferences file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		if path != "" {
			c.path = path
		}
	}
}

// WithFilePermissions sets the file permissions for the preferences file.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions for a created parent directory.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// FileStore persists Settings as flat YAML.
type FileStore struct {
	config fileStoreConfig
}

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// Exists reports whether the preferences file is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.config.path)
	return err == nil
}

// Load reads the preferences. Keys absent from the file take their default
// and are returned in missing, in file order. A missing file yields the
// defaults with every key missing.
func (s *FileStore) Load() (cfg *Settings, missing []string, err error) {
	cfg = Defaults()

	data, err := os.ReadFile(s.config.path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, slices.Clone(Keys), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read settings: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	for _, key := range Keys {
		value, ok := raw[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		if value == nil {
			continue
		}
		if err := cfg.Set(key, value); err != nil {
			return nil, nil, fmt.Errorf("invalid settings: %w", err)
		}
	}

	base := filepath.Dir(s.config.path)
	cfg.ConfigPath = ResolvePath(cfg.ConfigPath, base)
	cfg.WorkingDir = ResolvePath(cfg.WorkingDir, base)
	return cfg, missing, nil
}

// Save persists the preferences.
func (s *FileStore) Save(cfg *Settings) error {
	if cfg == nil {
		cfg = Defaults()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	if err := os.WriteFile(s.config.path, data, s.config.filePerm); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Path returns the path to the backing file.
func (s *FileStore) Path() string {
	return s.config.path
}

// Dir returns the directory holding the backing file.
func (s *FileStore) Dir() string {
	return filepath.Dir(s.config.path)
}

// Gitignore outcomes.
const (
	GitignoreCreated = "created"
	GitignoreUpdated = "updated"
	GitignoreExists  = "already present"
)

// EnsureGitignore makes sure the .gitignore next to the preferences file
// lists the preferences file.
func (s *FileStore) EnsureGitignore() (string, error) {
	path := filepath.Join(s.Dir(), ".gitignore")
	name := filepath.Base(s.config.path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(name+"\n"), 0o644); err != nil {
			return "", fmt.Errorf("failed to write .gitignore: %w", err)
		}
		return GitignoreCreated, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read .gitignore: %w", err)
	}

	for line := range strings.Lines(string(data)) {
		if strings.TrimSpace(line) == name {
			return GitignoreExists, nil
		}
	}

	var buf bytes.Buffer
	buf.Write(data)
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(name + "\n")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write .gitignore: %w", err)
	}
	return GitignoreUpdated, nil
}
