package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shareui/packit-repo/catalog/entities"
	"github.com/shareui/packit-repo/catalog/values"
	"github.com/shareui/packit-repo/netutil"
)

// MaxCatalogSize bounds a fetched catalog body.
const MaxCatalogSize = 16 << 20

// Fetcher downloads a remote catalog document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches catalogs over HTTP with retries.
type HTTPFetcher struct {
	client  *retryablehttp.Client
	maxSize int64
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.client.HTTPClient.Timeout = d }
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.client.RetryMax = n }
}

// WithInsecureTLS disables certificate verification.
func WithInsecureTLS(insecure bool) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.client.HTTPClient.Transport = netutil.NewTransport(insecure) }
}

// WithMaxSize bounds the response body.
func WithMaxSize(n int64) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.maxSize = n }
}

// WithFetchLogger routes retry logging to l.
func WithFetchLogger(l *slog.Logger) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.client.Logger = l
		}
	}
}

// NewHTTPFetcher creates a fetcher with a 10s timeout and three retries.
func NewHTTPFetcher(opts ...HTTPFetcherOption) *HTTPFetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.HTTPClient = &http.Client{Timeout: 10 * time.Second, Transport: netutil.NewTransport(false)}

	f := &HTTPFetcher{client: rc, maxSize: MaxCatalogSize}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := netutil.ValidateRepositoryURL(url); err != nil {
		return nil, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return netutil.ReadAll(resp.Body, f.maxSize)
}

// RefreshResult counts the outcome of one refresh.
type RefreshResult struct {
	Success int
	Failed  int
	Errors  map[string]error
}

// Refresher downloads every enabled repository into its cache key.
type Refresher struct {
	repos         *RepositoryManager
	cache         *Cache
	fetcher       Fetcher
	clientVersion string
	now           func() time.Time
	logger        *slog.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithClientVersion drops cached plugins whose min_version the client does not meet.
func WithClientVersion(v string) RefresherOption {
	return func(r *Refresher) { r.clientVersion = v }
}

// WithRefreshClock sets the time stamped into caches.
func WithRefreshClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

// WithRefreshLogger sets the logger.
func WithRefreshLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

// NewRefresher creates a refresher.
func NewRefresher(repos *RepositoryManager, cache *Cache, fetcher Fetcher, opts ...RefresherOption) *Refresher {
	r := &Refresher{repos: repos, cache: cache, fetcher: fetcher, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh updates every enabled repository in order. A failing repository
// is counted and logged; it never stops the others.
func (r *Refresher) Refresh(ctx context.Context) RefreshResult {
	res := RefreshResult{Errors: map[string]error{}}
	for _, repo := range r.repos.Enabled() {
		if ctx.Err() != nil {
			res.Failed++
			res.Errors[repo.ID] = ctx.Err()
			continue
		}
		if err := r.refreshOne(ctx, repo); err != nil {
			res.Failed++
			res.Errors[repo.ID] = err
			r.logger.Warn("failed to update repo", "repo", repo.Name, "url", netutil.StripCredentials(repo.URL), "error", err)
			continue
		}
		res.Success++
		r.logger.Info("updated repo cache", "repo", repo.Name)
	}
	return res
}

// RefreshAsync runs Refresh in the background and calls done with the
// counts when it finishes. The returned WaitGroup completes after done returns.
func (r *Refresher) RefreshAsync(ctx context.Context, done func(success, failed int)) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Go(func() {
		res := r.Refresh(ctx)
		if done != nil {
			done(res.Success, res.Failed)
		}
	})
	return &wg
}

func (r *Refresher) refreshOne(ctx context.Context, repo RepositoryConfig) error {
	body, err := r.fetcher.Fetch(ctx, repo.URL)
	if err != nil {
		return err
	}
	catalog, err := entities.ParseCatalog(body)
	if err != nil {
		return err
	}
	if r.clientVersion != "" {
		catalog.Plugins = r.compatible(catalog.Plugins)
	}
	rc, err := NewRepoCache(repo, catalog, r.now())
	if err != nil {
		return err
	}
	return r.cache.Store(repo, rc)
}

func (r *Refresher) compatible(plugins []*entities.PluginEntry) []*entities.PluginEntry {
	out := plugins[:0:0]
	for _, p := range plugins {
		minVersion := p.MinVersion()
		if minVersion == "" {
			out = append(out, p)
			continue
		}
		ok, err := values.SatisfiesMinVersion(r.clientVersion, minVersion)
		if err != nil {
			r.logger.Debug("keeping plugin with unparsable min_version", "id", p.ID(), "min_version", minVersion, "error", err)
			out = append(out, p)
			continue
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}
