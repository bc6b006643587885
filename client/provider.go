// Package client models the companion chat-client plugin: its key-value
// settings, configured repositories and the cached remote catalogs.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Provider is the plugin's settings store. Values are strings; structured
// values are stored as JSON text.
type Provider interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
}

// Get returns the value for key, or def when it is unset.
func Get(p Provider, key, def string) string {
	if v, ok := p.Lookup(key); ok {
		return v
	}
	return def
}

// MemoryProvider keeps settings in memory. Safe for concurrent use.
type MemoryProvider struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{values: map[string]string{}}
}

func (m *MemoryProvider) Lookup(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryProvider) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// FileProvider persists settings as one JSON object, keeping key order.
// Every Set rewrites the file. Safe for concurrent use within one process.
type FileProvider struct {
	mu     sync.Mutex
	path   string
	values *orderedmap.OrderedMap[string, string]
}

// OpenFileProvider loads path, treating a missing file as empty.
func OpenFileProvider(path string) (*FileProvider, error) {
	fp := &FileProvider{path: path, values: orderedmap.New[string, string]()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fp, nil
	}
	if err := json.Unmarshal(data, fp.values); err != nil {
		return nil, fmt.Errorf("failed to parse client settings %s: %w", path, err)
	}
	return fp, nil
}

// Path returns the backing file.
func (f *FileProvider) Path() string {
	return f.path
}

func (f *FileProvider) Lookup(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Get(key)
}

func (f *FileProvider) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values.Set(key, value)
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode client settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write client settings: %w", err)
	}
	return os.Rename(tmp, f.path)
}
