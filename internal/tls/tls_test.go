package tls

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledReturnsNil(t *testing.T) {
	cfg, err := Config{}.ServerConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestEnabledWithoutCertsFails(t *testing.T) {
	_, err := Config{Enabled: true}.ServerConfig()
	assert.Error(t, err)
}

func TestAutoGenerateCreatesUsableCertificate(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Config{
		Enabled:      true,
		Dir:          dir,
		AutoGenerate: true,
		DNSNames:     []string{"localhost", "127.0.0.1"},
		ValidDays:    1,
	}.ServerConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	_, err = os.Stat(filepath.Join(dir, "tls.crt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "tls.key"))
	require.NoError(t, err)

	cert, err := cfg.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.NotNil(t, cert)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
}

func TestExplicitFilesWinOverDir(t *testing.T) {
	dir := t.TempDir()
	gen := Config{Dir: dir, AutoGenerate: true}
	require.NoError(t, gen.generate(filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key")))

	cfg, err := Config{
		Enabled:    true,
		CertFile:   filepath.Join(dir, "tls.crt"),
		KeyFile:    filepath.Join(dir, "tls.key"),
		MinVersion: "1.2",
	}.ServerConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)

	cert, err := cfg.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.NotNil(t, cert)
}

func TestCertificateFuncRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "other.crt")
	fn := certificateFunc(filepath.Join(dir, "tls.crt"), outside)
	_, err := fn(&tls.ClientHelloInfo{})
	assert.Error(t, err)
}
