package extractor

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/shareui/packit-repo/catalog/filesystem"
)

// ElyxExt is the extension of packed plugin directories.
const ElyxExt = ".elyx"

// MaxManifestSize bounds how much of an archived refmap is read.
const MaxManifestSize = 1 << 20

// ErrUnsafePath is returned when an archive entry would escape the destination.
var ErrUnsafePath = errors.New("unsafe path in archive")

// ReadElyxManifest returns the refmap inside an .elyx archive. The manifest
// may sit at the archive root or inside a single top-level directory.
func ReadElyxManifest(archivePath string) (*Refmap, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	f := findArchivedManifest(r.File)
	if f == nil {
		return nil, fmt.Errorf("no refmap found in %s", filepath.Base(archivePath))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, MaxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return ParseRefmap(path.Base(f.Name), data)
}

func findArchivedManifest(files []*zip.File) *zip.File {
	byName := make(map[string]*zip.File, len(files))
	for _, f := range files {
		byName[strings.TrimPrefix(f.Name, "./")] = f
	}
	for _, name := range filesystem.ManifestNames {
		if f, ok := byName[name]; ok {
			return f
		}
	}
	for _, name := range filesystem.ManifestNames {
		for _, f := range files {
			key := strings.TrimPrefix(f.Name, "./")
			if dir, base := path.Split(key); base == name && strings.Count(dir, "/") == 1 {
				return f
			}
		}
	}
	return nil
}

// PackElyx zips the contents of srcDir into destPath. Paths inside the
// archive are relative to srcDir. destPath gets the .elyx extension when
// it lacks one.
func PackElyx(srcDir, destPath string) (string, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return "", fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", srcDir)
	}
	if !strings.HasSuffix(strings.ToLower(destPath), ElyxExt) {
		destPath += ElyxExt
	}
	absSrc, _ := filepath.Abs(srcDir)
	absDest, _ := filepath.Abs(destPath)

	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == absDest {
			return nil
		}
		rel, err := filepath.Rel(absSrc, mustAbs(p))
		if err != nil {
			return err
		}
		return addZipFile(zw, p, filepath.ToSlash(rel))
	})
	closeErr := zw.Close()
	fileErr := out.Close()
	if err := errors.Join(walkErr, closeErr, fileErr); err != nil {
		_ = os.Remove(destPath)
		return "", fmt.Errorf("packing %s: %w", srcDir, err)
	}
	return destPath, nil
}

func mustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func addZipFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// UnpackElyx extracts archivePath into destDir/<archive stem> and returns
// that directory. Entries with absolute paths or ".." segments are refused
// before anything is written.
func UnpackElyx(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		if r != nil {
			_ = r.Close()
		}
		return "", fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if !filepath.IsLocal(filepath.FromSlash(f.Name)) {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
		}
	}

	stem := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	target := filepath.Join(destDir, stem)
	if err := os.MkdirAll(target, 0o750); err != nil {
		return "", fmt.Errorf("creating %s: %w", target, err)
	}

	// Writes go through os.Root so no entry can leave target.
	root, err := os.OpenRoot(target)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", target, err)
	}
	defer func() { _ = root.Close() }()

	for _, f := range r.File {
		name := filepath.FromSlash(strings.TrimSuffix(f.Name, "/"))
		if f.FileInfo().IsDir() {
			if err := root.MkdirAll(name, 0o750); err != nil {
				return "", fmt.Errorf("creating %s: %w", name, err)
			}
			continue
		}
		if dir := filepath.Dir(name); dir != "." {
			if err := root.MkdirAll(dir, 0o750); err != nil {
				return "", fmt.Errorf("creating %s: %w", dir, err)
			}
		}
		if err := extractFile(root, f, name); err != nil {
			return "", err
		}
	}
	return target, nil
}

func extractFile(root *os.Root, f *zip.File, name string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return out.Close()
}
