package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shareui/packit-repo/catalog/entities"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RepoCache is the cached copy of one repository's catalog, stored under
// the repository's CacheKey.
type RepoCache struct {
	LastUpdate string                                          `json:"last_update"`
	URL        string                                          `json:"url"`
	Name       string                                          `json:"name"`
	Plugins    *orderedmap.OrderedMap[string, json.RawMessage] `json:"plugins"`
}

// NewRepoCache indexes a catalog's plugins by id. Later duplicates win.
func NewRepoCache(repo RepositoryConfig, catalog *entities.Catalog, at time.Time) (*RepoCache, error) {
	plugins := orderedmap.New[string, json.RawMessage]()
	for _, p := range catalog.Plugins {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", p.ID(), err)
		}
		plugins.Set(p.ID(), raw)
	}
	return &RepoCache{
		LastUpdate: at.Format(time.RFC3339Nano),
		URL:        repo.URL,
		Name:       repo.Name,
		Plugins:    plugins,
	}, nil
}

// CachedPlugin is one plugin found in a repository cache.
type CachedPlugin struct {
	RepoID   string
	RepoName string
	Entry    *entities.PluginEntry
}

// ID returns the plugin id.
func (c CachedPlugin) ID() string { return c.Entry.ID() }

// Cache reads and writes repository caches through a Provider. Only
// enabled repositories are consulted.
type Cache struct {
	provider Provider
	repos    *RepositoryManager
	logger   *slog.Logger
}

// NewCache creates a cache over the provider used by repos.
func NewCache(p Provider, repos *RepositoryManager, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{provider: p, repos: repos, logger: logger}
}

// Load returns the cache of one repository, or nil when none is stored.
func (c *Cache) Load(repo RepositoryConfig) (*RepoCache, error) {
	raw, ok := c.provider.Lookup(repo.CacheKey())
	if !ok || raw == "" {
		return nil, nil
	}
	rc := &RepoCache{Plugins: orderedmap.New[string, json.RawMessage]()}
	if err := json.Unmarshal([]byte(raw), rc); err != nil {
		return nil, fmt.Errorf("failed to parse cache for %s: %w", repo.Name, err)
	}
	if rc.Plugins == nil {
		rc.Plugins = orderedmap.New[string, json.RawMessage]()
	}
	return rc, nil
}

// Store writes the cache of one repository.
func (c *Cache) Store(repo RepositoryConfig, rc *RepoCache) error {
	data, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("failed to encode cache for %s: %w", repo.Name, err)
	}
	return c.provider.Set(repo.CacheKey(), string(data))
}

// walk visits every cached plugin of every enabled repository in order.
// Unreadable caches are logged and skipped. Returning false stops the walk.
func (c *Cache) walk(visit func(CachedPlugin) bool) {
	for _, repo := range c.repos.Enabled() {
		rc, err := c.Load(repo)
		if err != nil {
			c.logger.Warn("skipping repository cache", "repo", repo.Name, "error", err)
			continue
		}
		if rc == nil {
			continue
		}
		for pair := rc.Plugins.Oldest(); pair != nil; pair = pair.Next() {
			entry := entities.NewPluginEntry()
			if err := json.Unmarshal(pair.Value, entry); err != nil {
				c.logger.Warn("skipping cached plugin", "repo", repo.Name, "id", pair.Key, "error", err)
				continue
			}
			if entry.ID() == "" {
				entry.SetString(entities.FieldID, pair.Key)
			}
			if !visit(CachedPlugin{RepoID: repo.ID, RepoName: repo.Name, Entry: entry}) {
				return
			}
		}
	}
}

// Lookup returns the first cached plugin with the given id.
func (c *Cache) Lookup(id string) (CachedPlugin, bool) {
	var found CachedPlugin
	ok := false
	c.walk(func(p CachedPlugin) bool {
		if p.ID() == id {
			found, ok = p, true
			return false
		}
		return true
	})
	return found, ok
}

// Search returns cached plugins whose id, name or description contains the
// query, ignoring case.
func (c *Cache) Search(query string) []CachedPlugin {
	q := strings.ToLower(query)
	var out []CachedPlugin
	c.walk(func(p CachedPlugin) bool {
		if strings.Contains(strings.ToLower(p.ID()), q) ||
			strings.Contains(strings.ToLower(p.Entry.Name()), q) ||
			strings.Contains(strings.ToLower(p.Entry.Description()), q) {
			out = append(out, p)
		}
		return true
	})
	return out
}

// All returns every cached plugin.
func (c *Cache) All() []CachedPlugin {
	var out []CachedPlugin
	c.walk(func(p CachedPlugin) bool {
		out = append(out, p)
		return true
	})
	return out
}
