package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrCatalogNotFound is returned when the catalog file does not exist.
	ErrCatalogNotFound = errors.New("catalog not found")

	// ErrCatalogFormat is returned when catalog content is malformed.
	ErrCatalogFormat = errors.New("malformed catalog")

	// ErrPluginNotFound is returned when no entry carries the requested id.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrDuplicateID is returned when inserting an id already present.
	ErrDuplicateID = errors.New("duplicate plugin id")

	// ErrProtectedField is returned when a reset targets an identity field.
	ErrProtectedField = errors.New("protected field")

	// ErrUnknownSortKey is returned for sort keys other than name, id and version.
	ErrUnknownSortKey = errors.New("unknown sort key")
)

// CatalogNotFoundError indicates the catalog path does not exist.
type CatalogNotFoundError struct {
	Path string
}

func (e *CatalogNotFoundError) Error() string {
	return fmt.Sprintf("catalog not found: %s", e.Path)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, entities.ErrCatalogNotFound)
func (e *CatalogNotFoundError) Is(target error) bool {
	return target == ErrCatalogNotFound
}

// CatalogFormatError indicates the catalog does not parse or lacks a plugin list.
type CatalogFormatError struct {
	Path   string
	Reason string
}

func (e *CatalogFormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed catalog: %s", e.Reason)
	}
	return fmt.Sprintf("malformed catalog %s: %s", e.Path, e.Reason)
}

// Is implements error matching for errors.Is() checks.
func (e *CatalogFormatError) Is(target error) bool {
	return target == ErrCatalogFormat
}

// PluginNotFoundError names the id that was not found.
type PluginNotFoundError struct {
	ID string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("plugin not found: %s", e.ID)
}

// Is implements error matching for errors.Is() checks.
func (e *PluginNotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}
