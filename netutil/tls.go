// Package netutil holds the HTTP helpers used to fetch remote catalogs.
package netutil

import (
	"crypto/tls"
	"net/http"
	"time"
)

// TLSConfig returns a TLS configuration with a TLS 1.2 minimum.
func TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
	}
}

// InsecureTLSConfig skips certificate verification. Only for an explicit --insecure.
func InsecureTLSConfig() *tls.Config {
	cfg := TLSConfig()
	cfg.InsecureSkipVerify = true
	return cfg
}

// NewTransport returns an HTTP transport using TLSConfig, or
// InsecureTLSConfig when insecure is set.
func NewTransport(insecure bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = TLSConfig()
	if insecure {
		t.TLSClientConfig = InsecureTLSConfig()
	}
	t.TLSHandshakeTimeout = 10 * time.Second
	return t
}
