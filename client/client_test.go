package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shareui/packit-repo/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newManager(p client.Provider, now time.Time) *client.RepositoryManager {
	return client.NewRepositoryManager(p, client.WithClock(fixedClock(now)), client.WithManagerLogger(testLogger()))
}

func TestCommands(t *testing.T) {
	t.Parallel()
	p := client.NewMemoryProvider()
	require.NoError(t, p.Set(client.CmdSearch, "pk find"))

	set, err := client.InitDefaultCommands(p)
	require.NoError(t, err)
	assert.Len(t, set, len(client.CommandKeys)-1)
	assert.NotContains(t, set, client.CmdSearch)

	assert.Equal(t, "packit info", client.Command(p, client.CmdInfo))
	assert.Equal(t, "packit upgrade", client.Command(p, client.CmdUpgrade))
	assert.Equal(t, "pk find", client.Command(p, client.CmdSearch))
	assert.Empty(t, client.DefaultCommand("cmd_unknown"))
}

func TestRepositoryManager_AddFirstAndBlank(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 30, 45, 123456000, time.UTC)
	m := newManager(client.NewMemoryProvider(), now)

	assert.Empty(t, m.List())
	added, err := m.EnsureDefault()
	require.NoError(t, err)
	assert.True(t, added)

	repos := m.List()
	require.Len(t, repos, 1)
	assert.Equal(t, "2026.03.01 12:30:45.123456", repos[0].ID)
	assert.Equal(t, client.OfficialName, repos[0].Name)
	assert.Equal(t, client.OfficialURL, repos[0].URL)
	assert.True(t, repos[0].Enabled)
	assert.False(t, repos[0].Collapsed)

	added, err = m.EnsureDefault()
	require.NoError(t, err)
	assert.False(t, added)

	blank, err := m.Add(false)
	require.NoError(t, err)
	assert.Empty(t, blank.Name)
	assert.Empty(t, blank.URL)
	assert.Greater(t, blank.ID, repos[0].ID, "ids strictly increase under a frozen clock")
}

func TestRepositoryManager_IDsIncreasePastStored(t *testing.T) {
	t.Parallel()
	p := client.NewMemoryProvider()
	require.NoError(t, p.Set(client.RepositoriesKey, `[{"id":"2030.01.01 00:00:00.000000","name":"future","url":"u"}]`))

	m := newManager(p, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	repo, err := m.Add(false)
	require.NoError(t, err)
	assert.Equal(t, "2030.01.01 00:00:00.000001", repo.ID)
	assert.True(t, m.List()[0].Enabled, "missing enabled reads as true")
}

func TestRepositoryManager_MissingEnabledIsRefreshed(t *testing.T) {
	t.Parallel()
	p := client.NewMemoryProvider()
	require.NoError(t, p.Set(client.RepositoriesKey,
		`[{"id":"a","name":"legacy","url":"u1"},{"id":"b","name":"off","url":"u2","enabled":false}]`))

	m := newManager(p, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	enabled := m.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "legacy", enabled[0].Name)
}

func TestRepositoryManager_EditsIgnoreBadIndex(t *testing.T) {
	t.Parallel()
	m := newManager(client.NewMemoryProvider(), time.Now())
	_, err := m.Add(true)
	require.NoError(t, err)
	before := m.List()

	assert.NoError(t, m.Remove(5))
	assert.NoError(t, m.Remove(-1))
	assert.NoError(t, m.UpdateField(3, client.FieldName, "x"))
	assert.NoError(t, m.ToggleCollapsed(9))
	assert.Equal(t, before, m.List())
}

func TestRepositoryManager_UpdateAndToggle(t *testing.T) {
	t.Parallel()
	m := newManager(client.NewMemoryProvider(), time.Now())
	_, err := m.Add(true)
	require.NoError(t, err)

	require.NoError(t, m.UpdateField(0, client.FieldName, "Mirror"))
	require.NoError(t, m.UpdateField(0, client.FieldEnabled, "false"))
	require.NoError(t, m.ToggleCollapsed(0))

	r := m.List()[0]
	assert.Equal(t, "Mirror", r.Name)
	assert.False(t, r.Enabled)
	assert.True(t, r.Collapsed)
	assert.Empty(t, m.Enabled())

	assert.ErrorIs(t, m.UpdateField(0, "colour", "red"), client.ErrUnknownField)
	assert.Error(t, m.UpdateField(0, client.FieldCollapsed, "sometimes"))

	require.NoError(t, m.Remove(0))
	assert.Empty(t, m.List())
}

func TestRepositoryManager_MalformedReadsEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"{not json", `{"id":"x"}`, `"text"`, "null"} {
		p := client.NewMemoryProvider()
		require.NoError(t, p.Set(client.RepositoriesKey, raw))
		assert.Empty(t, newManager(p, time.Now()).List(), raw)
	}
}

func TestFileProvider_Persists(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "client.json")

	p, err := client.OpenFileProvider(path)
	require.NoError(t, err)
	_, ok := p.Lookup("cmd_info")
	assert.False(t, ok)
	require.NoError(t, p.Set("zeta", "1"))
	require.NoError(t, p.Set("alpha", "2"))

	reopened, err := client.OpenFileProvider(path)
	require.NoError(t, err)
	assert.Equal(t, "1", client.Get(reopened, "zeta", ""))
	assert.Equal(t, "fallback", client.Get(reopened, "missing", "fallback"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(data), "zeta"), strings.Index(string(data), "alpha"), "insertion order kept")

	require.NoError(t, os.WriteFile(path, []byte("[1,2]"), 0o600))
	_, err = client.OpenFileProvider(path)
	assert.Error(t, err)
}

const remoteCatalog = `{"repometa":{"name":"remote"},"plugins":[` +
	`{"id":"weather","name":"Weather","version":"1.0","description":"Shows forecasts","min_version":"2.0.0"},` +
	`{"id":"notes","name":"Quick Notes","version":"2.1","description":"Pin text"},` +
	`{"id":"future","name":"Future","version":"0.1","min_version":"9.0.0"}` +
	`]}`

type stubFetcher struct {
	bodies map[string]string
	errs   map[string]error
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	body, ok := s.bodies[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func setupRefresh(t *testing.T) (*client.RepositoryManager, *client.Cache, *stubFetcher) {
	t.Helper()
	p := client.NewMemoryProvider()
	m := newManager(p, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	_, err := m.Add(true)
	require.NoError(t, err)
	_, err = m.Add(false)
	require.NoError(t, err)
	require.NoError(t, m.UpdateField(1, client.FieldURL, "https://mirror.example.com/config.json"))
	_, err = m.Add(false)
	require.NoError(t, err)
	require.NoError(t, m.UpdateField(2, client.FieldEnabled, false))

	f := &stubFetcher{
		bodies: map[string]string{client.OfficialURL: remoteCatalog},
		errs:   map[string]error{"https://mirror.example.com/config.json": errors.New("timeout")},
	}
	return m, client.NewCache(p, m, testLogger()), f
}

func TestRefresher_Refresh(t *testing.T) {
	t.Parallel()
	m, cache, f := setupRefresh(t)

	r := client.NewRefresher(m, cache, f,
		client.WithClientVersion("2.5.0"),
		client.WithRefreshClock(fixedClock(time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC))),
		client.WithRefreshLogger(testLogger()))
	res := r.Refresh(context.Background())

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 1, res.Failed, "disabled repository is not fetched")
	require.Len(t, res.Errors, 1)

	rc, err := cache.Load(m.List()[0])
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.Equal(t, client.OfficialURL, rc.URL)
	assert.Equal(t, "2026-05-02T08:00:00Z", rc.LastUpdate)
	_, hasFuture := rc.Plugins.Get("future")
	assert.False(t, hasFuture, "plugins requiring a newer client are dropped")

	found, ok := cache.Lookup("notes")
	require.True(t, ok)
	assert.Equal(t, client.OfficialName, found.RepoName)
	assert.Equal(t, "2.1", found.Entry.Version())

	_, ok = cache.Lookup("future")
	assert.False(t, ok)

	hits := cache.Search("FORECAST")
	require.Len(t, hits, 1)
	assert.Equal(t, "weather", hits[0].ID())
	assert.Len(t, cache.Search("quick"), 1)

	var ids []string
	for _, p := range cache.All() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"weather", "notes"}, ids)
}

func TestRefresher_RefreshAsyncCallback(t *testing.T) {
	t.Parallel()
	m, cache, f := setupRefresh(t)

	var success, failed int
	wg := client.NewRefresher(m, cache, f, client.WithRefreshLogger(testLogger())).
		RefreshAsync(context.Background(), func(s, fl int) { success, failed = s, fl })
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, failed)
	assert.Len(t, cache.All(), 3, "no client version keeps every plugin")
}

func TestCache_CorruptEntrySkipped(t *testing.T) {
	t.Parallel()
	p := client.NewMemoryProvider()
	m := newManager(p, time.Now())
	repo, err := m.Add(true)
	require.NoError(t, err)
	require.NoError(t, p.Set(repo.CacheKey(), "{broken"))

	cache := client.NewCache(p, m, testLogger())
	assert.Empty(t, cache.All())
	_, err = cache.Load(repo)
	assert.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/config.json":
			_, _ = w.Write([]byte(remoteCatalog))
		case "/big.json":
			_, _ = w.Write([]byte(strings.Repeat(" ", 2048)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := client.NewHTTPFetcher(client.WithRetries(0), client.WithMaxSize(1024), client.WithTimeout(2*time.Second))
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/config.json")
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Contains(t, doc, "plugins")

	_, err = f.Fetch(ctx, srv.URL+"/missing.json")
	assert.ErrorContains(t, err, "404")

	_, err = f.Fetch(ctx, srv.URL+"/big.json")
	assert.ErrorContains(t, err, "too large")

	_, err = f.Fetch(ctx, "file:///etc/passwd")
	assert.Error(t, err)
}
