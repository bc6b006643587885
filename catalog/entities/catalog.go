package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shareui/packit-repo/catalog/values"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/cases"
)

// Top-level catalog document keys.
const (
	KeyRepometa = "repometa"
	KeyPlugins  = "plugins"
)

// Sort keys accepted by Catalog.Sort.
const (
	SortByName    = "name"
	SortByID      = "id"
	SortByVersion = "version"
)

// ProtectedFields cannot be removed by ResetKey.
var ProtectedFields = []string{FieldID, FieldName, FieldVersion}

// Catalog is the aggregate root of a plugin repository.
//
// Invariants:
// - Plugins keep insertion order except after an explicit Sort
// - Insert rejects ids that are already present
// - Top-level fields other than plugins (repometa included) pass through untouched
type Catalog struct {
	doc     *orderedmap.OrderedMap[string, json.RawMessage]
	Plugins []*PluginEntry
}

// NewCatalog creates an empty catalog with an empty repometa object.
func NewCatalog() *Catalog {
	doc := orderedmap.New[string, json.RawMessage]()
	doc.Set(KeyRepometa, json.RawMessage("{}"))
	doc.Set(KeyPlugins, nil)
	return &Catalog{doc: doc}
}

// ParseCatalog decodes a catalog document. The returned error is a
// *CatalogFormatError when the content is not a JSON object with a plugin list.
func ParseCatalog(data []byte) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &CatalogFormatError{Reason: "document is not a JSON object"}
	}

	doc := orderedmap.New[string, json.RawMessage]()
	if err := doc.UnmarshalJSON(trimmed); err != nil {
		return nil, &CatalogFormatError{Reason: err.Error()}
	}

	rawPlugins, ok := doc.Get(KeyPlugins)
	if !ok {
		return nil, &CatalogFormatError{Reason: `missing "plugins" list`}
	}
	rawPlugins = bytes.TrimSpace(rawPlugins)
	if len(rawPlugins) == 0 || rawPlugins[0] != '[' {
		return nil, &CatalogFormatError{Reason: `"plugins" is not a list`}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawPlugins, &items); err != nil {
		return nil, &CatalogFormatError{Reason: err.Error()}
	}

	c := &Catalog{doc: doc, Plugins: make([]*PluginEntry, 0, len(items))}
	for i, item := range items {
		entry := NewPluginEntry()
		if err := entry.UnmarshalJSON(item); err != nil {
			return nil, &CatalogFormatError{Reason: fmt.Sprintf("plugins[%d]: %v", i, err)}
		}
		c.Plugins = append(c.Plugins, entry)
	}
	doc.Set(KeyPlugins, nil)
	return c, nil
}

// Repometa returns the opaque repository metadata, or nil when absent.
func (c *Catalog) Repometa() json.RawMessage {
	raw, _ := c.document().Get(KeyRepometa)
	return raw
}

// SetRepometa replaces the repository metadata.
func (c *Catalog) SetRepometa(raw json.RawMessage) {
	c.document().Set(KeyRepometa, raw)
}

func (c *Catalog) document() *orderedmap.OrderedMap[string, json.RawMessage] {
	if c.doc == nil {
		c.doc = orderedmap.New[string, json.RawMessage]()
		c.doc.Set(KeyRepometa, json.RawMessage("{}"))
		c.doc.Set(KeyPlugins, nil)
	}
	return c.doc
}

// MarshalJSON writes top-level fields in document order with the current plugin list.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	doc := c.document()
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	wrotePlugins := false
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeKey(&buf, pair.Key); err != nil {
			return nil, err
		}
		if pair.Key == KeyPlugins {
			if err := c.writePlugins(&buf); err != nil {
				return nil, err
			}
			wrotePlugins = true
			continue
		}
		buf.Write(pair.Value)
	}
	if !wrotePlugins {
		if !first {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, KeyPlugins); err != nil {
			return nil, err
		}
		if err := c.writePlugins(&buf); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Catalog) writePlugins(buf *bytes.Buffer) error {
	buf.WriteByte('[')
	for i, p := range c.Plugins {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := p.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return nil
}

// UnmarshalJSON implements json.Unmarshaler via ParseCatalog.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCatalog(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.Plugins)
}

// Find returns the first entry with the given id and its position.
// Returns -1 and nil if not found.
func (c *Catalog) Find(id string) (int, *PluginEntry) {
	for i, p := range c.Plugins {
		if p.ID() == id {
			return i, p
		}
	}
	return -1, nil
}

// Insert appends an entry. Returns ErrDuplicateID if the id is already present.
func (c *Catalog) Insert(entry *PluginEntry) error {
	if idx, _ := c.Find(entry.ID()); idx >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID())
	}
	c.Plugins = append(c.Plugins, entry)
	return nil
}

// Replace swaps the entry at position i, keeping its place in the list.
func (c *Catalog) Replace(i int, entry *PluginEntry) error {
	if i < 0 || i >= len(c.Plugins) {
		return fmt.Errorf("replace: index %d out of range [0,%d)", i, len(c.Plugins))
	}
	c.Plugins[i] = entry
	return nil
}

// Remove deletes the first entry with the given id.
func (c *Catalog) Remove(id string) (*PluginEntry, error) {
	idx, entry := c.Find(id)
	if idx < 0 {
		return nil, &PluginNotFoundError{ID: id}
	}
	c.Plugins = slices.Delete(c.Plugins, idx, idx+1)
	return entry, nil
}

// RemoveIDs deletes every entry whose id is in ids and returns the removed entries.
func (c *Catalog) RemoveIDs(ids []string) []*PluginEntry {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var removed []*PluginEntry
	kept := c.Plugins[:0:0]
	for _, p := range c.Plugins {
		if drop[p.ID()] {
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	c.Plugins = kept
	return removed
}

// Sort orders entries by name (case-insensitive), id or version. The sort is
// stable; entries with unparsable versions sort after valid ones.
func (c *Catalog) Sort(by string) error {
	switch by {
	case SortByName:
		fold := cases.Fold()
		slices.SortStableFunc(c.Plugins, func(a, b *PluginEntry) int {
			return strings.Compare(fold.String(a.Name()), fold.String(b.Name()))
		})
	case SortByID:
		slices.SortStableFunc(c.Plugins, func(a, b *PluginEntry) int {
			return strings.Compare(a.ID(), b.ID())
		})
	case SortByVersion:
		slices.SortStableFunc(c.Plugins, compareEntryVersions)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSortKey, by)
	}
	return nil
}

func compareEntryVersions(a, b *PluginEntry) int {
	av, bv := a.Version(), b.Version()
	aok, bok := values.IsValidVersion(av), values.IsValidVersion(bv)
	switch {
	case aok && bok:
		cmp, _ := values.CompareVersions(av, bv)
		return cmp
	case aok:
		return -1
	case bok:
		return 1
	default:
		return 0
	}
}

// ResetKey removes a field from every entry and returns how many entries had it.
func (c *Catalog) ResetKey(key string) (int, error) {
	if slices.Contains(ProtectedFields, key) {
		return 0, fmt.Errorf("%w: %q cannot be removed", ErrProtectedField, key)
	}
	count := 0
	for _, p := range c.Plugins {
		if p.Delete(key) {
			count++
		}
	}
	return count, nil
}

// IDs returns entry ids in list order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.Plugins))
	for i, p := range c.Plugins {
		ids[i] = p.ID()
	}
	return ids
}

// DuplicateIDs returns ids that occur more than once, in first-seen order.
func (c *Catalog) DuplicateIDs() []string {
	seen := make(map[string]int, len(c.Plugins))
	var dups []string
	for _, p := range c.Plugins {
		seen[p.ID()]++
		if seen[p.ID()] == 2 {
			dups = append(dups, p.ID())
		}
	}
	return dups
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	doc := orderedmap.New[string, json.RawMessage]()
	src := c.document()
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		doc.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	out := &Catalog{doc: doc, Plugins: make([]*PluginEntry, len(c.Plugins))}
	for i, p := range c.Plugins {
		out.Plugins[i] = p.Clone()
	}
	return out
}
