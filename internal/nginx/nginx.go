// Package nginx renders, installs, and validates the site
// configurations the gateway can also serve natively.
package nginx

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"nodegate/internal/config"
)

const (
	// DefaultSitesAvailable and DefaultSitesEnabled are the standard
	// debian-style nginx site directories.
	DefaultSitesAvailable = "/etc/nginx/sites-available"
	DefaultSitesEnabled   = "/etc/nginx/sites-enabled"

	_binary = "/usr/sbin/nginx"
)

// Params are the substitution variables for the site templates.
type Params struct {
	NodeHost       string
	InstallDir     string
	SupervisorPort string
	APIPort        string
}

// ParamsFromConfig derives template parameters from gateway
// configuration. Upstream addresses are host:port; only the port is
// substituted because nginx proxies to loopback.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	p := Params{
		NodeHost:   cfg.NodeHost,
		InstallDir: cfg.InstallDir,
	}

	var err error
	if _, p.SupervisorPort, err = net.SplitHostPort(cfg.SupervisorUpstream); err != nil {
		return Params{}, fmt.Errorf("supervisor upstream: %w", err)
	}
	if _, p.APIPort, err = net.SplitHostPort(cfg.APIUpstream); err != nil {
		return Params{}, fmt.Errorf("api upstream: %w", err)
	}

	return p, p.Validate()
}

// Validate checks that the required substitution variables are present.
func (p Params) Validate() error {
	if p.NodeHost == "" {
		return fmt.Errorf("node host is required")
	}
	if p.InstallDir == "" {
		return fmt.Errorf("install dir is required")
	}
	return nil
}

// Render populates the site template for the given mode.
func Render(mode string, p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.SupervisorPort == "" {
		p.SupervisorPort = "9001"
	}
	if p.APIPort == "" {
		p.APIPort = "8001"
	}

	var src string
	switch mode {
	case config.ModeProduction:
		src = SiteTemplate
	case config.ModeDocker:
		src = DockerSiteTemplate
	default:
		return nil, fmt.Errorf("unknown mode: %s", mode)
	}

	return populateTemplate(src, p)
}

func populateTemplate(src string, p Params) ([]byte, error) {
	t, err := template.New("nginx").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	out := &bytes.Buffer{}
	if err := t.Execute(out, p); err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return out.Bytes(), nil
}

// WriteSite installs a rendered site configuration under both
// sites-available and sites-enabled.
func WriteSite(name string, src []byte) error {
	for _, d := range []string{DefaultSitesAvailable, DefaultSitesEnabled} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(d, name), src, 0644); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
	}
	return nil
}

// Validate runs "nginx -t" against the installed configuration.
// Malformed substitution surfaces here, with nginx's own diagnostics.
func Validate() error {
	cmd := exec.Command(_binary, "-t")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Run execs nginx in the foreground. Used when nodegate acts as a
// supervisor-friendly wrapper around nginx instead of serving itself.
func Run() error {
	cmd := exec.Command(_binary, "-g", "daemon off;")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
