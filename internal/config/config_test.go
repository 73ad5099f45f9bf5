package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, 53, cfg.ListenPort)
	require.Equal(t, "0.0.0.0", cfg.ListenAddr)
	require.Equal(t, "cloudflare", cfg.Upstream)
	require.Equal(t, 3000, cfg.UpstreamTimeoutMS)
	require.Equal(t, 300, cfg.CacheTTL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "charon.yaml")
	content := "listen_port: 5353\nupstream: quad9\nverbose: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, 5353, cfg.ListenPort)
	require.Equal(t, "quad9", cfg.Upstream)
	require.True(t, cfg.Verbose)
}

func TestLoad_FileOverridesDBSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "charon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_port: 5353\n"), 0o644))

	dbValues := map[string]string{"listen_port": "9999", "cache_ttl": "120"}
	cfg, err := Load(path, dbValues)
	require.NoError(t, err)
	require.Equal(t, 5353, cfg.ListenPort) // file wins over db-seeded default
	require.Equal(t, 120, cfg.CacheTTL)    // db-seeded default applies where file is silent
}

func TestLoad_RejectsBadUpstream(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "charon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("upstream: bogus\n"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestUpstreamTimeout(t *testing.T) {
	cfg := Config{UpstreamTimeoutMS: 1500}
	require.Equal(t, int64(1500), cfg.UpstreamTimeout().Milliseconds())
}
