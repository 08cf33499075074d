package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProductionDefaults(t *testing.T) {
	t.Setenv("NODE_HOST", "node.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ":80", cfg.HTTPAddr)
	assert.Equal(t, ":443", cfg.HTTPSAddr)
	assert.Equal(t, "127.0.0.1:9001", cfg.SupervisorUpstream)
	assert.Equal(t, "127.0.0.1:8001", cfg.APIUpstream)

	// Derived paths follow the deployment layout
	assert.Equal(t, "/opt/node/htpasswd", cfg.HtpasswdPath)
	assert.Equal(t, "/opt/node/public", cfg.StaticRoot)
	assert.Equal(t, "/etc/letsencrypt/live/node.example.com/fullchain.pem", cfg.CertFile)
	assert.Equal(t, "/etc/letsencrypt/live/node.example.com/privkey.pem", cfg.KeyFile)
	assert.Equal(t, "/var/log/nodegate/gateway.log", cfg.LogFile)
}

func TestLoadDockerMode(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "docker")
	t.Setenv("NODE_HOST", "localhost")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeDocker, cfg.Mode)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "./logs/gateway.log", cfg.LogFile)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NODE_HOST", "node.example.com")
	t.Setenv("INSTALL_DIR", "/srv/node")
	t.Setenv("HTPASSWD_PATH", "/etc/custom/htpasswd")
	t.Setenv("API_UPSTREAM", "127.0.0.1:9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/node", cfg.InstallDir)
	assert.Equal(t, "/etc/custom/htpasswd", cfg.HtpasswdPath, "explicit path wins over derivation")
	assert.Equal(t, "/srv/node/public", cfg.StaticRoot)
	assert.Equal(t, "127.0.0.1:9090", cfg.APIUpstream)
}

func TestLoadMissingHost(t *testing.T) {
	t.Setenv("NODE_HOST", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidMode(t *testing.T) {
	t.Setenv("GATEWAY_MODE", "staging")
	t.Setenv("NODE_HOST", "node.example.com")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadUpstream(t *testing.T) {
	t.Setenv("NODE_HOST", "node.example.com")
	t.Setenv("API_UPSTREAM", "no-port")
	_, err := Load()
	assert.Error(t, err)
}
