package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// RepositoriesKey holds the JSON list of configured repositories.
const RepositoriesKey = "repositories"

// Defaults for the first repository.
const (
	OfficialName = "Official"
	OfficialURL  = "https://raw.githubusercontent.com/shareui/packit/main/configs/config.json"
)

// IDLayout formats repository ids from the creation time.
const IDLayout = "2006.01.02 15:04:05.000000"

// Repository fields accepted by UpdateField.
const (
	FieldName      = "name"
	FieldURL       = "url"
	FieldEnabled   = "enabled"
	FieldCollapsed = "collapsed"
)

// ErrUnknownField is returned by UpdateField for fields a repository does not have.
var ErrUnknownField = errors.New("unknown repository field")

// RepositoryConfig is one remote catalog the client reads.
type RepositoryConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	Collapsed bool   `json:"collapsed"`
}

// UnmarshalJSON treats a missing enabled flag as true.
func (r *RepositoryConfig) UnmarshalJSON(data []byte) error {
	type plain RepositoryConfig
	p := plain{Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = RepositoryConfig(p)
	return nil
}

// CacheKey is the provider key holding this repository's cached catalog.
func (r RepositoryConfig) CacheKey() string {
	return r.ID + "_cache"
}

// RepositoryManager edits the repository list stored in a Provider.
// Index-based edits ignore out-of-range indexes.
type RepositoryManager struct {
	provider Provider
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	lastID string
}

// RepositoryManagerOption configures a RepositoryManager.
type RepositoryManagerOption func(*RepositoryManager)

// WithClock sets the time source used for ids.
func WithClock(now func() time.Time) RepositoryManagerOption {
	return func(m *RepositoryManager) { m.now = now }
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l *slog.Logger) RepositoryManagerOption {
	return func(m *RepositoryManager) { m.logger = l }
}

// NewRepositoryManager creates a manager over p.
func NewRepositoryManager(p Provider, opts ...RepositoryManagerOption) *RepositoryManager {
	m := &RepositoryManager{provider: p, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List returns the stored repositories. A missing or malformed value reads as empty.
func (m *RepositoryManager) List() []RepositoryConfig {
	raw := Get(m.provider, RepositoriesKey, "[]")
	var repos []RepositoryConfig
	if err := json.Unmarshal([]byte(raw), &repos); err != nil {
		m.logger.Debug("ignoring malformed repository list", "error", err)
		return []RepositoryConfig{}
	}
	if repos == nil {
		return []RepositoryConfig{}
	}
	return repos
}

// Enabled returns the enabled repositories in list order.
func (m *RepositoryManager) Enabled() []RepositoryConfig {
	var out []RepositoryConfig
	for _, r := range m.List() {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// Save replaces the stored list.
func (m *RepositoryManager) Save(repos []RepositoryConfig) error {
	if repos == nil {
		repos = []RepositoryConfig{}
	}
	data, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("failed to encode repositories: %w", err)
	}
	return m.provider.Set(RepositoriesKey, string(data))
}

// Add appends a repository. The first repository gets the official name
// and URL, later ones start blank. Both start enabled and expanded.
func (m *RepositoryManager) Add(isFirst bool) (RepositoryConfig, error) {
	repos := m.List()
	repo := RepositoryConfig{ID: m.nextID(repos), Enabled: true}
	if isFirst {
		repo.Name = OfficialName
		repo.URL = OfficialURL
	}
	if err := m.Save(append(repos, repo)); err != nil {
		return RepositoryConfig{}, err
	}
	return repo, nil
}

// EnsureDefault adds the official repository when the list is empty and
// reports whether it did.
func (m *RepositoryManager) EnsureDefault() (bool, error) {
	if len(m.List()) > 0 {
		return false, nil
	}
	_, err := m.Add(true)
	return err == nil, err
}

// Remove deletes the repository at idx.
func (m *RepositoryManager) Remove(idx int) error {
	repos := m.List()
	if idx < 0 || idx >= len(repos) {
		return nil
	}
	return m.Save(slices.Delete(repos, idx, idx+1))
}

// UpdateField sets one field of the repository at idx. Booleans accept
// loose values such as "true" or 1.
func (m *RepositoryManager) UpdateField(idx int, field string, value any) error {
	repos := m.List()
	if idx < 0 || idx >= len(repos) {
		return nil
	}

	r := &repos[idx]
	var err error
	switch field {
	case FieldName:
		r.Name, err = cast.ToStringE(value)
	case FieldURL:
		r.URL, err = cast.ToStringE(value)
	case FieldEnabled:
		r.Enabled, err = cast.ToBoolE(value)
	case FieldCollapsed:
		r.Collapsed, err = cast.ToBoolE(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return m.Save(repos)
}

// ToggleCollapsed flips the collapsed flag of the repository at idx.
func (m *RepositoryManager) ToggleCollapsed(idx int) error {
	repos := m.List()
	if idx < 0 || idx >= len(repos) {
		return nil
	}
	repos[idx].Collapsed = !repos[idx].Collapsed
	return m.Save(repos)
}

// nextID returns a timestamp id greater than any id issued or stored so
// far. The fixed-width layout makes string order match time order.
func (m *RepositoryManager) nextID(existing []RepositoryConfig) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	floor := m.lastID
	for _, r := range existing {
		if _, err := time.Parse(IDLayout, r.ID); err == nil && r.ID > floor {
			floor = r.ID
		}
	}

	t := m.now()
	id := t.Format(IDLayout)
	if id <= floor {
		if last, err := time.ParseInLocation(IDLayout, floor, t.Location()); err == nil {
			t = last
		}
		for id <= floor {
			t = t.Add(time.Microsecond)
			id = t.Format(IDLayout)
		}
	}
	m.lastID = id
	return id
}
