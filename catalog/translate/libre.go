// Package translate implements ports.Translator against a LibreTranslate
// compatible HTTP endpoint.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shareui/packit-repo/netutil"
)

const maxResponseSize = 1 << 20

// HTTPTranslator posts text to <endpoint>/translate.
type HTTPTranslator struct {
	endpoint string
	apiKey   string
	client   *retryablehttp.Client
	logger   *slog.Logger
}

// Option configures an HTTPTranslator.
type Option func(*HTTPTranslator)

// WithAPIKey sends an API key with each request.
func WithAPIKey(key string) Option {
	return func(t *HTTPTranslator) { t.apiKey = key }
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(t *HTTPTranslator) { t.client.RetryMax = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTPTranslator) { t.logger = l }
}

// New creates a translator for the given base URL.
func New(endpoint string, opts ...Option) (*HTTPTranslator, error) {
	if err := netutil.ValidateRepositoryURL(endpoint); err != nil {
		return nil, fmt.Errorf("translate endpoint: %w", err)
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient = &http.Client{Timeout: 15 * time.Second, Transport: netutil.NewTransport(false)}

	t := &HTTPTranslator{
		endpoint: strings.TrimRight(endpoint, "/") + "/translate",
		client:   rc,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate implements ports.Translator. An empty translation reports ok=false.
func (t *HTTPTranslator) Translate(ctx context.Context, text, sourceLang, destLang string) (string, bool, error) {
	if strings.TrimSpace(text) == "" || sourceLang == destLang {
		return text, false, nil
	}

	body, err := json.Marshal(request{Q: text, Source: sourceLang, Target: destLang, Format: "text", APIKey: t.apiKey})
	if err != nil {
		return "", false, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("translate request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := netutil.ReadAll(resp.Body, maxResponseSize)
	if err != nil {
		return "", false, err
	}
	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return "", false, fmt.Errorf("decoding translate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("translate: %s: %s", resp.Status, out.Error)
	}

	t.logger.Debug("translated description", "from", sourceLang, "to", destLang)
	if out.TranslatedText == "" {
		return "", false, nil
	}
	return out.TranslatedText, true, nil
}
