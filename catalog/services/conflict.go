// Package services contains the catalog domain services: entry building,
// conflict resolution and reconciliation of a directory against a catalog.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/ports"
)

// DefaultExcludedFields never raise conflicts; they always follow the new entry.
var DefaultExcludedFields = []string{entities.FieldVersion, entities.FieldState, entities.FieldHash}

// ConflictResolver detects and resolves field-level divergences between a
// stored entry and a freshly built entry for the same plugin.
//
// Resolution uses replacement semantics: the result starts from the new
// entry, so fields only present in the old entry are not carried over.
// Callers that want to keep them merge them into the new entry first
// (see EntryBuilder.CarryForward).
type ConflictResolver struct {
	excluded map[string]bool
}

// NewConflictResolver creates a resolver. With no fields given,
// DefaultExcludedFields apply.
func NewConflictResolver(excluded ...string) *ConflictResolver {
	if len(excluded) == 0 {
		excluded = DefaultExcludedFields
	}
	set := make(map[string]bool, len(excluded))
	for _, f := range excluded {
		set[f] = true
	}
	return &ConflictResolver{excluded: set}
}

// Detect lists conflicts in the field order of newEntry.
func (r *ConflictResolver) Detect(oldEntry, newEntry *entities.PluginEntry) []entities.Conflict {
	var conflicts []entities.Conflict
	for _, field := range newEntry.Keys() {
		if r.excluded[field] {
			continue
		}
		oldVal, ok := oldEntry.Get(field)
		if !ok {
			continue
		}
		newVal, _ := newEntry.Get(field)
		if entities.ValuesEqual(oldVal, newVal) {
			continue
		}
		conflicts = append(conflicts, entities.Conflict{
			ID:    newEntry.ID(),
			Field: field,
			Old:   oldVal,
			New:   newVal,
		})
	}
	return conflicts
}

// Resolve returns the merged entry. Each conflict is passed to decider
// independently; a nil decider takes the new value for every field.
// When there are no conflicts the new entry is returned unchanged.
func (r *ConflictResolver) Resolve(
	ctx context.Context,
	oldEntry, newEntry *entities.PluginEntry,
	decider ports.ConflictDecider,
) (*entities.PluginEntry, error) {
	conflicts := r.Detect(oldEntry, newEntry)
	if len(conflicts) == 0 {
		return newEntry, nil
	}

	resolved := newEntry.Clone()
	for _, c := range conflicts {
		res := entities.Resolution{Choice: entities.TakeNew}
		if decider != nil {
			var err error
			res, err = decider.ResolveConflict(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("resolving %s.%s: %w", c.ID, c.Field, err)
			}
		}
		if err := apply(resolved, c, res); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func apply(entry *entities.PluginEntry, c entities.Conflict, res entities.Resolution) error {
	switch res.Choice {
	case entities.KeepOld:
		entry.SetRaw(c.Field, c.Old)
	case entities.TakeNew:
		entry.SetRaw(c.Field, c.New)
	case entities.Override:
		if !json.Valid(res.Value) {
			return fmt.Errorf("override for %s.%s is not valid JSON", c.ID, c.Field)
		}
		entry.SetRaw(c.Field, res.Value)
	default:
		return fmt.Errorf("unknown resolution %s for %s.%s", res.Choice, c.ID, c.Field)
	}
	return nil
}
