package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office_word_mcp_server/internal/audit"
	"office_word_mcp_server/internal/config"
	"office_word_mcp_server/internal/lock"
)

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "word_mcp_server "+Version+"\n", out.String())
}

func TestRootHasServe(t *testing.T) {
	root := NewRootCmd()
	cmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", cmd.Name())
	for _, name := range []string{"config", "transport", "host", "port", "path"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
		assert.NotNil(t, root.Flags().Lookup(name), name)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func parsed(t *testing.T, args ...string) (*cobra.Command, *serveOptions) {
	t.Helper()
	opts := &serveOptions{}
	cmd := &cobra.Command{Use: "serve"}
	opts.bind(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, opts
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	t.Setenv("MCP_TRANSPORT", "")
	t.Setenv("MCP_PORT", "")
	path := writeConfig(t, "server:\n  transport: sse\n  port: 9100\n")

	cmd, opts := parsed(t, "--config", path, "--transport", "streamable-http", "--path", "/word")
	cfg, err := opts.loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "streamable-http", cfg.Server.Transport)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/word", cfg.Server.Path)
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	cmd, opts := parsed(t, "--config", writeConfig(t, ""), "--transport", "telnet")
	_, err := opts.loadConfig(cmd)
	assert.Error(t, err)
}

func TestBuildDepsDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Documents.DefaultDir = t.TempDir()

	deps, cleanup, err := buildDeps(cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, deps.Store)
	assert.NotNil(t, deps.Handler)
	assert.NotNil(t, deps.Cache)
	assert.Nil(t, deps.Discovery)
	assert.IsType(t, &lock.Local{}, deps.Locker)
	assert.Equal(t, audit.Noop{}, deps.Audit)
}

func TestNewAuditPublisher(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.Enabled = true
	pub, err := newAuditPublisher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &audit.LogPublisher{}, pub)

	cfg.Databases.Kafka.Brokers = []string{"localhost:9092"}
	pub, err = newAuditPublisher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &audit.KafkaPublisher{}, pub)
	assert.NoError(t, pub.Close())
}
