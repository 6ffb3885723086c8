package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "word-document-server", cfg.App.Name)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Convert.Timeout)
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := writeYAML(t, `
server:
  transport: sse
  port: 9100
convert:
  timeout: 2m
cache:
  ttl: 30s
documents:
  allowed_dirs: ["/srv/docs"]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sse", cfg.Server.Transport)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/mcp", cfg.Server.Path, "unset fields keep defaults")
	assert.Equal(t, 2*time.Minute, cfg.Convert.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"/srv/docs"}, cfg.Documents.AllowedDirs)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	_, err := LoadConfig(writeYAML(t, "server: [unclosed"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MCP_TRANSPORT", "STREAMABLE-HTTP")
	t.Setenv("MCP_PORT", "8123")
	t.Setenv("MCP_PATH", "/rpc")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "streamable-http", cfg.Server.Transport)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, "/rpc", cfg.Server.Path)
	assert.Equal(t, "0.0.0.0:8123", cfg.Server.Addr())

	t.Setenv("MCP_PORT", "eighty")
	_, err = LoadConfig("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"transport", func(c *AppConfig) { c.Server.Transport = "websocket" }, "Transport"},
		{"port", func(c *AppConfig) { c.Server.Port = 70000 }, "Port"},
		{"lock backend", func(c *AppConfig) { c.Lock.Backend = "zookeeper" }, "Backend"},
		{"jwt secret", func(c *AppConfig) { c.Auth.Method = "jwt" }, "JwtSecret"},
		{"cache capacity", func(c *AppConfig) { c.Cache.Capacity = -1 }, "Capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
	require.NoError(t, Default().Validate())
}
