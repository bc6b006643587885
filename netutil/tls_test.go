package netutil_test

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shareui/packit-repo/netutil"
)

func Test_TLSConfig_MinVersion(t *testing.T) {
	cfg := netutil.TLSConfig()

	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.NotEmpty(t, cfg.CipherSuites)
}

func Test_NewTransport(t *testing.T) {
	secure := netutil.NewTransport(false)
	assert.False(t, secure.TLSClientConfig.InsecureSkipVerify)

	insecure := netutil.NewTransport(true)
	assert.True(t, insecure.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, uint16(tls.VersionTLS12), insecure.TLSClientConfig.MinVersion)
}
