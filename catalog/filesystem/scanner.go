package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PluginFilePattern matches plugin file names (lowercased) in the working directory.
const PluginFilePattern = "*.{plugin,elyx,eaf}"

// ManifestNames are the refmap files that mark an unpacked plugin directory.
var ManifestNames = []string{"refmap.yml", "refmap.yaml", "refmap.json", "refmap.py"}

// IgnoredNames are operating system files never treated as plugins.
var IgnoredNames = []string{".DS_Store", "Thumbs.db", "desktop.ini"}

// DirScanner lists plugin files and unpacked plugin directories in the
// top level of a working directory.
type DirScanner struct {
	ignore []string
	logger *slog.Logger
}

// ScannerOption configures a DirScanner.
type ScannerOption func(*DirScanner)

// WithIgnorePatterns adds doublestar patterns matched against entry names.
func WithIgnorePatterns(patterns ...string) ScannerOption {
	return func(s *DirScanner) { s.ignore = append(s.ignore, patterns...) }
}

// WithScannerLogger sets the logger.
func WithScannerLogger(l *slog.Logger) ScannerOption {
	return func(s *DirScanner) { s.logger = l }
}

// NewDirScanner creates a scanner. Invalid ignore patterns are reported here.
func NewDirScanner(opts ...ScannerOption) (*DirScanner, error) {
	s := &DirScanner{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range s.ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	return s, nil
}

// Scan returns absolute-joined paths sorted by name. A missing directory
// yields no paths.
func (s *DirScanner) Scan(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("working directory does not exist", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("reading working directory %q: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if s.skip(name) {
			continue
		}
		full := filepath.Join(dir, name)
		switch {
		case e.IsDir():
			if IsUnpackedPlugin(full) {
				paths = append(paths, full)
			}
		case e.Type().IsRegular():
			if IsPluginFile(name) {
				paths = append(paths, full)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func (s *DirScanner) skip(name string) bool {
	if isHidden(name) {
		return true
	}
	for _, n := range IgnoredNames {
		if n == name {
			return true
		}
	}
	for _, p := range s.ignore {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// IsPluginFile reports whether a file name has a plugin extension, ignoring case.
func IsPluginFile(name string) bool {
	ok, _ := doublestar.Match(PluginFilePattern, strings.ToLower(name))
	return ok
}

// IsUnpackedPlugin reports whether dir contains a refmap manifest.
func IsUnpackedPlugin(dir string) bool {
	_, ok := FindManifest(dir)
	return ok
}

// FindManifest returns the path of the first refmap manifest in dir.
func FindManifest(dir string) (string, bool) {
	for _, name := range ManifestNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
