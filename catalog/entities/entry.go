// Package entities contains the catalog aggregate and its plugin entries.
package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Known PluginEntry field names.
const (
	FieldID           = "id"
	FieldName         = "name"
	FieldAuthor       = "author"
	FieldVersion      = "version"
	FieldState        = "state"
	FieldIcon         = "icon"
	FieldMinVersion   = "min_version"
	FieldDependencies = "dependencies"
	FieldLink         = "link"
	FieldHash         = "hash"
	FieldAbout        = "about"
	FieldDescription  = "description"
)

// KnownFields lists the typed fields in canonical order. New entries are
// written in this order; loaded entries keep the order found on disk.
var KnownFields = []string{
	FieldID, FieldName, FieldAuthor, FieldVersion, FieldState, FieldIcon,
	FieldMinVersion, FieldDependencies, FieldLink, FieldHash, FieldAbout, FieldDescription,
}

var knownFieldSet = func() map[string]bool {
	m := make(map[string]bool, len(KnownFields))
	for _, f := range KnownFields {
		m[f] = true
	}
	return m
}()

// IsKnownField reports whether name is one of the typed PluginEntry fields.
func IsKnownField(name string) bool {
	return knownFieldSet[name]
}

// PluginEntry is one plugin descriptor row of a catalog.
//
// Fields are held as raw JSON in document order, so unrecognized fields and
// the original field order survive a load/save cycle. Typed accessors decode
// the known fields on demand.
type PluginEntry struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// NewPluginEntry creates an empty entry.
func NewPluginEntry() *PluginEntry {
	return &PluginEntry{fields: orderedmap.New[string, json.RawMessage]()}
}

// ID returns the stable plugin identifier.
func (e *PluginEntry) ID() string { return e.String(FieldID) }

// Name returns the display name.
func (e *PluginEntry) Name() string { return e.String(FieldName) }

// Author returns the plugin author.
func (e *PluginEntry) Author() string { return e.String(FieldAuthor) }

// Version returns the normalized numeric version.
func (e *PluginEntry) Version() string { return e.String(FieldVersion) }

// State returns the release state.
func (e *PluginEntry) State() string { return e.String(FieldState) }

// Icon returns the icon reference.
func (e *PluginEntry) Icon() string { return e.String(FieldIcon) }

// Link returns the download URL.
func (e *PluginEntry) Link() string { return e.String(FieldLink) }

// Hash returns the stored content checksum, or "" when not tracked.
func (e *PluginEntry) Hash() string { return e.String(FieldHash) }

// Description returns the free text description.
func (e *PluginEntry) Description() string { return e.String(FieldDescription) }

// MinVersion returns the minimum client version, if any.
func (e *PluginEntry) MinVersion() string { return e.String(FieldMinVersion) }

// Dependencies returns the ordered dependency ids.
func (e *PluginEntry) Dependencies() []string {
	raw, ok := e.Get(FieldDependencies)
	if !ok {
		return nil
	}
	var deps []string
	if err := json.Unmarshal(raw, &deps); err != nil {
		return nil
	}
	return deps
}

// About returns the about text and whether the field is present.
func (e *PluginEntry) About() (About, bool) {
	raw, ok := e.Get(FieldAbout)
	if !ok {
		return About{}, false
	}
	var a About
	if err := json.Unmarshal(raw, &a); err != nil {
		return About{}, false
	}
	return a, true
}

// Filename returns the final path segment of the link, which is the
// canonical file name of the plugin.
func (e *PluginEntry) Filename() string {
	link := e.Link()
	if link == "" {
		return ""
	}
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	return path.Base(strings.TrimRight(link, "/"))
}

// String decodes a string field. Missing or non-string values read as "".
func (e *PluginEntry) String(key string) string {
	raw, ok := e.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Has reports whether the field is present.
func (e *PluginEntry) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// Get returns the raw JSON value of a field.
func (e *PluginEntry) Get(key string) (json.RawMessage, bool) {
	if e.fields == nil {
		return nil, false
	}
	return e.fields.Get(key)
}

// Set marshals value into the field. Existing fields keep their position,
// new fields are appended.
func (e *PluginEntry) Set(key string, value any) error {
	raw, err := marshalValue(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	e.SetRaw(key, raw)
	return nil
}

// SetString sets a string field.
func (e *PluginEntry) SetString(key, value string) {
	raw, _ := marshalValue(value)
	e.SetRaw(key, raw)
}

// SetRaw stores a raw JSON value.
func (e *PluginEntry) SetRaw(key string, raw json.RawMessage) {
	if e.fields == nil {
		e.fields = orderedmap.New[string, json.RawMessage]()
	}
	e.fields.Set(key, append(json.RawMessage(nil), raw...))
}

// Delete removes a field and reports whether it was present.
func (e *PluginEntry) Delete(key string) bool {
	if e.fields == nil {
		return false
	}
	_, ok := e.fields.Delete(key)
	return ok
}

// Keys returns the field names in document order.
func (e *PluginEntry) Keys() []string {
	if e.fields == nil {
		return nil
	}
	keys := make([]string, 0, e.fields.Len())
	for pair := e.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Extensions returns the names of fields outside the known set, in document order.
func (e *PluginEntry) Extensions() []string {
	var ext []string
	for _, k := range e.Keys() {
		if !knownFieldSet[k] {
			ext = append(ext, k)
		}
	}
	return ext
}

// Len returns the number of fields.
func (e *PluginEntry) Len() int {
	if e.fields == nil {
		return 0
	}
	return e.fields.Len()
}

// Clone returns a deep copy.
func (e *PluginEntry) Clone() *PluginEntry {
	c := NewPluginEntry()
	for _, k := range e.Keys() {
		raw, _ := e.Get(k)
		c.SetRaw(k, raw)
	}
	return c
}

// SortFields reorders the entry so known fields come first in canonical
// order, followed by extension fields in their current order.
func (e *PluginEntry) SortFields() {
	sorted := orderedmap.New[string, json.RawMessage]()
	for _, k := range KnownFields {
		if raw, ok := e.Get(k); ok {
			sorted.Set(k, raw)
		}
	}
	for _, k := range e.Extensions() {
		raw, _ := e.Get(k)
		sorted.Set(k, raw)
	}
	e.fields = sorted
}

// MarshalJSON writes the fields in document order. Values are emitted as
// stored, without re-escaping.
func (e *PluginEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, k); err != nil {
			return nil, err
		}
		raw, _ := e.Get(k)
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalValue encodes v without HTML escaping so "&" and "<" in
// descriptions are written literally.
func marshalValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeKey writes a JSON object key without HTML escaping.
func writeKey(buf *bytes.Buffer, key string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	buf.WriteByte(':')
	return nil
}

// UnmarshalJSON reads a JSON object, keeping field order.
func (e *PluginEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("plugin entry must be a JSON object")
	}
	m := orderedmap.New[string, json.RawMessage]()
	if err := m.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	e.fields = m
	return nil
}

// ValuesEqual compares two raw JSON values semantically, ignoring whitespace
// and object key order.
func ValuesEqual(a, b json.RawMessage) bool {
	var x, y any
	if err := json.Unmarshal(a, &x); err != nil {
		return bytes.Equal(a, b)
	}
	if err := json.Unmarshal(b, &y); err != nil {
		return false
	}
	return reflect.DeepEqual(x, y)
}

// Equal reports whether two entries hold the same fields with equal values,
// regardless of field order.
func (e *PluginEntry) Equal(other *PluginEntry) bool {
	if e.Len() != other.Len() {
		return false
	}
	for _, k := range e.Keys() {
		a, _ := e.Get(k)
		b, ok := other.Get(k)
		if !ok || !ValuesEqual(a, b) {
			return false
		}
	}
	return true
}
