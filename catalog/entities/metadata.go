package entities

import "path/filepath"

// MetadataRecord is the descriptor extracted from one plugin file or
// directory. A non-empty Err marks an extraction failure for that file only.
type MetadataRecord struct {
	ID           string
	Name         string
	Author       string
	Version      string
	State        string
	Icon         string
	MinVersion   string
	Description  string
	Dependencies []string

	FilePath string
	FileHash string
	Err      string
}

// Failed reports whether extraction failed.
func (m *MetadataRecord) Failed() bool {
	return m.Err != ""
}

// FileName returns the base name of the source path.
func (m *MetadataRecord) FileName() string {
	return filepath.Base(m.FilePath)
}

// FailedRecord builds a record carrying only a path and a failure reason.
func FailedRecord(path, reason string) *MetadataRecord {
	return &MetadataRecord{FilePath: path, Err: reason}
}
