package nginx

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodegate/internal/config"
)

var testParams = Params{
	NodeHost:       "node.example.com",
	InstallDir:     "/opt/node",
	SupervisorPort: "9001",
	APIPort:        "8001",
}

func TestRenderProduction(t *testing.T) {
	src, err := Render(config.ModeProduction, testParams)
	require.NoError(t, err)
	conf := string(src)

	// Substitution happened everywhere
	assert.NotContains(t, conf, "{{")
	assert.Contains(t, conf, "server_name node.example.com;")
	assert.Contains(t, conf, "ssl_certificate     /etc/letsencrypt/live/node.example.com/fullchain.pem;")
	assert.Contains(t, conf, "ssl_certificate_key /etc/letsencrypt/live/node.example.com/privkey.pem;")

	// Plain HTTP only redirects
	assert.Contains(t, conf, "return 301 https://$host$request_uri;")

	// Route table
	assert.Contains(t, conf, "location /supervisor/")
	assert.Contains(t, conf, "proxy_pass http://127.0.0.1:9001/;")
	assert.Contains(t, conf, "location /api/")
	assert.Contains(t, conf, "proxy_pass http://127.0.0.1:8001/;")
	assert.Contains(t, conf, "location /api/ws/")
	assert.Contains(t, conf, "proxy_pass http://127.0.0.1:8001/ws/;")
}

func TestRenderProductionAuthInEveryLocation(t *testing.T) {
	src, err := Render(config.ModeProduction, testParams)
	require.NoError(t, err)
	conf := string(src)

	locations := regexp.MustCompile(`location `).FindAllStringIndex(conf, -1)
	auths := strings.Count(conf, "auth_basic           \"Restricted\";")
	userFiles := strings.Count(conf, "auth_basic_user_file /opt/node/htpasswd;")

	require.Equal(t, 4, len(locations))
	assert.Equal(t, len(locations), auths, "every location must require Basic Auth")
	assert.Equal(t, len(locations), userFiles)
}

func TestRenderDocker(t *testing.T) {
	src, err := Render(config.ModeDocker, testParams)
	require.NoError(t, err)
	conf := string(src)

	assert.NotContains(t, conf, "{{")
	assert.NotContains(t, conf, "auth_basic", "docker template must not require auth")
	assert.NotContains(t, conf, "/supervisor/", "supervisor panel is production-only")
	assert.NotContains(t, conf, "ssl_certificate")
	assert.NotContains(t, conf, "return 301")

	assert.Contains(t, conf, "listen 80;")
	assert.Contains(t, conf, "root  /opt/node/public;")
	assert.Contains(t, conf, "try_files $uri $uri/ =404;")
	assert.Contains(t, conf, "location /api/")
	assert.Contains(t, conf, "location /api/ws/")
}

func TestRenderUpgradeMap(t *testing.T) {
	for _, mode := range []string{config.ModeProduction, config.ModeDocker} {
		src, err := Render(mode, testParams)
		require.NoError(t, err)
		conf := string(src)

		// Empty Upgrade header computes to close, anything else upgrades
		assert.Contains(t, conf, "map $http_upgrade $connection_upgrade")
		assert.Contains(t, conf, "default upgrade;")
		assert.Contains(t, conf, "''      close;")
	}
}

func TestRenderWebSocketHeadersOnlyOnWsRoute(t *testing.T) {
	src, err := Render(config.ModeProduction, testParams)
	require.NoError(t, err)
	conf := string(src)

	assert.Equal(t, 1, strings.Count(conf, "proxy_set_header Upgrade $http_upgrade;"))
	assert.Equal(t, 1, strings.Count(conf, "proxy_set_header Connection $connection_upgrade;"))

	// The upgrade headers live in the /api/ws/ block, after the plain /api/ block
	wsIdx := strings.Index(conf, "location /api/ws/")
	upgradeIdx := strings.Index(conf, "proxy_set_header Upgrade")
	assert.Greater(t, upgradeIdx, wsIdx)
}

func TestRenderMissingParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"missing host", Params{InstallDir: "/opt/node"}},
		{"missing install dir", Params{NodeHost: "node.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Render(config.ModeProduction, tt.params); err == nil {
				t.Error("expected error for incomplete params")
			}
		})
	}
}

func TestRenderUnknownMode(t *testing.T) {
	_, err := Render("staging", testParams)
	assert.Error(t, err)
}

func TestParamsFromConfig(t *testing.T) {
	cfg := &config.Config{
		NodeHost:           "node.example.com",
		InstallDir:         "/srv/node",
		SupervisorUpstream: "127.0.0.1:9001",
		APIUpstream:        "127.0.0.1:8001",
	}

	p, err := ParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "node.example.com", p.NodeHost)
	assert.Equal(t, "/srv/node", p.InstallDir)
	assert.Equal(t, "9001", p.SupervisorPort)
	assert.Equal(t, "8001", p.APIPort)
}

func TestParamsFromConfigBadUpstream(t *testing.T) {
	cfg := &config.Config{
		NodeHost:           "node.example.com",
		InstallDir:         "/srv/node",
		SupervisorUpstream: "no-port-here",
		APIUpstream:        "127.0.0.1:8001",
	}

	_, err := ParamsFromConfig(cfg)
	assert.Error(t, err)
}
