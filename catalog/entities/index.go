package entities

// BuildByHash maps content hashes to entry positions. Only entries carrying a
// hash participate; on duplicate hashes the later entry wins.
func BuildByHash(entries []*PluginEntry) map[string]int {
	m := make(map[string]int, len(entries))
	for i, e := range entries {
		if h := e.Hash(); h != "" {
			m[h] = i
		}
	}
	return m
}

// BuildByID maps ids to entry positions. On duplicate ids the later entry wins.
func BuildByID(entries []*PluginEntry) map[string]int {
	m := make(map[string]int, len(entries))
	for i, e := range entries {
		m[e.ID()] = i
	}
	return m
}

// FindByFilename returns the first entry, in list order, whose link ends in filename.
func FindByFilename(entries []*PluginEntry, filename string) (int, string, bool) {
	if filename == "" {
		return -1, "", false
	}
	for i, e := range entries {
		if e.Filename() == filename {
			return i, e.ID(), true
		}
	}
	return -1, "", false
}

// CatalogIndex is a disposable lookup view over a catalog's entries. It is
// kept current by Add and Replace while a reconciliation pass mutates the list.
type CatalogIndex struct {
	entries []*PluginEntry
	byID    map[string]int
	byHash  map[string]int
}

// NewCatalogIndex indexes entries by id and hash.
func NewCatalogIndex(entries []*PluginEntry) *CatalogIndex {
	return &CatalogIndex{
		entries: entries,
		byID:    BuildByID(entries),
		byHash:  BuildByHash(entries),
	}
}

// Entries returns the indexed list, including entries added through the index.
func (x *CatalogIndex) Entries() []*PluginEntry {
	return x.entries
}

// ByID returns the position of the entry with the given id.
func (x *CatalogIndex) ByID(id string) (int, *PluginEntry, bool) {
	i, ok := x.byID[id]
	if !ok {
		return -1, nil, false
	}
	return i, x.entries[i], true
}

// ByHash returns the position of the entry carrying the given hash.
func (x *CatalogIndex) ByHash(hash string) (int, *PluginEntry, bool) {
	i, ok := x.byHash[hash]
	if !ok {
		return -1, nil, false
	}
	return i, x.entries[i], true
}

// ByFilename returns the first entry whose link basename is filename.
func (x *CatalogIndex) ByFilename(filename string) (int, *PluginEntry, bool) {
	i, _, ok := FindByFilename(x.entries, filename)
	if !ok {
		return -1, nil, false
	}
	return i, x.entries[i], true
}

// Add appends an entry and indexes it.
func (x *CatalogIndex) Add(entry *PluginEntry) int {
	x.entries = append(x.entries, entry)
	i := len(x.entries) - 1
	x.index(i, entry)
	return i
}

// Replace swaps the entry at position i and re-indexes it.
func (x *CatalogIndex) Replace(i int, entry *PluginEntry) {
	prev := x.entries[i]
	if j, ok := x.byID[prev.ID()]; ok && j == i {
		delete(x.byID, prev.ID())
	}
	if h := prev.Hash(); h != "" {
		if j, ok := x.byHash[h]; ok && j == i {
			delete(x.byHash, h)
		}
	}
	x.entries[i] = entry
	x.index(i, entry)
}

func (x *CatalogIndex) index(i int, entry *PluginEntry) {
	x.byID[entry.ID()] = i
	if h := entry.Hash(); h != "" {
		x.byHash[h] = i
	}
}
