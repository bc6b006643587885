package ports

import (
	"context"

	"github.com/shareui/packit-repo/catalog/entities"
)

// PluginScanner lists plugin paths in a working directory.
type PluginScanner interface {
	Scan(ctx context.Context, dir string) ([]string, error)
}

// MetadataSource extracts a MetadataRecord from a plugin file or directory.
// Failures specific to one file are returned as a record with Err set;
// a returned error is treated the same way by callers.
type MetadataSource interface {
	Extract(ctx context.Context, path string) (*entities.MetadataRecord, error)
}

// PluginDigester computes content checksums.
type PluginDigester interface {
	DigestBytes(data []byte) string
	DigestFile(ctx context.Context, path string) (string, error)
	DigestDir(ctx context.Context, dir string) (string, error)
}

// Translator transforms description text between languages. ok is false
// when no translation is available.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, destLang string) (out string, ok bool, err error)
}
