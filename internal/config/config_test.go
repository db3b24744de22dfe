package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 18080\n"))
	require.NoError(t, err)

	assert.Equal(t, 18080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 3*time.Second, cfg.SSH.ProbeTimeout)
	assert.Equal(t, 15*time.Minute, cfg.SSH.IdleTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "redis", cfg.Credentials.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Credentials.TTL)
	assert.Equal(t, "local", cfg.Backup.StorageBackend)
	assert.Equal(t, "0.0.0.0:18080", cfg.GetServerAddr())
	assert.Same(t, cfg, Get())
}

func TestLoadSections(t *testing.T) {
	t.Setenv("LAB_PASSWORD", "from-env")
	cfg, err := Load(writeConfig(t, `
ssh:
  connect_timeout: 5s
  command_timeout: 20s
credentials:
  backend: static
  static:
    default:
      username: netops
      password: ${LAB_PASSWORD}
      privileged: en-secret
device_defaults:
  cisco_ios:
    prompt_suffixes: [">", "#"]
    disable_paging_cmds: ["terminal length 0"]
    enable_required: true
  default:
    disable_paging_cmds: ["terminal length 0"]
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, 20*time.Second, cfg.SSH.CommandTimeout)
	assert.Equal(t, StaticCredential{Username: "netops", Password: "from-env", Privileged: "en-secret"}, cfg.Credentials.Static["default"])

	ios := cfg.Platform("cisco_ios")
	assert.True(t, ios.EnableRequired)
	assert.Equal(t, []string{">", "#"}, ios.PromptSuffixes)
	assert.Equal(t, []string{"terminal length 0"}, cfg.Platform("cisco_asa").DisablePagingCmds)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NETCONFIG_SERVER_PORT", "19000")
	cfg, err := Load(writeConfig(t, "server:\n  port: 18080\n"))
	require.NoError(t, err)
	assert.Equal(t, 19000, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
