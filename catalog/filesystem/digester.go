package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/shareui/packit-repo/catalog/values"
)

// SHA256Digester implements ports.PluginDigester using SHA-256.
type SHA256Digester struct{}

// NewSHA256Digester creates a digester.
func NewSHA256Digester() *SHA256Digester {
	return &SHA256Digester{}
}

// DigestBytes returns the hex digest of data.
func (d *SHA256Digester) DigestBytes(data []byte) string {
	return values.DigestBytes(data).Hex()
}

// DigestFile returns the hex digest of a file's content.
func (d *SHA256Digester) DigestFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	digest, err := values.ComputeDigest(f)
	if err != nil {
		return "", fmt.Errorf("hashing %q: %w", path, err)
	}
	return digest.Hex(), nil
}

// DigestDir hashes every regular file below dir. Files are visited in
// sorted slash-separated relative path order; each contributes its path,
// a NUL byte, its content and another NUL byte.
func (d *SHA256Digester) DigestDir(ctx context.Context, dir string) (string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.Type().IsRegular() {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %q: %w", dir, err)
	}
	sort.Strings(files)

	h := sha256.New()
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		_, _ = io.WriteString(h, rel)
		_, _ = h.Write([]byte{0})
		if err := copyFile(h, filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			return "", err
		}
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("hashing %q: %w", path, err)
	}
	return nil
}
