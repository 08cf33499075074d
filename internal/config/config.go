package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Gateway modes. Production terminates TLS and requires Basic Auth on
// every route; docker serves plain HTTP with no auth and no supervisor
// panel.
const (
	ModeProduction = "production"
	ModeDocker     = "docker"
)

// Config holds all configuration for the application
type Config struct {
	// Deployment mode
	Mode string `env:"GATEWAY_MODE" envDefault:"production" validate:"oneof=production docker"`

	// Template substitution variables
	NodeHost   string `env:"NODE_HOST" validate:"required,hostname"`
	InstallDir string `env:"INSTALL_DIR" envDefault:"/opt/node" validate:"required"`

	// Listen addresses
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":80"`
	HTTPSAddr string `env:"HTTPS_ADDR" envDefault:":443"`

	// Upstreams (assumed already running, not supervised here)
	SupervisorUpstream string `env:"SUPERVISOR_UPSTREAM" envDefault:"127.0.0.1:9001" validate:"hostname_port"`
	APIUpstream        string `env:"API_UPSTREAM" envDefault:"127.0.0.1:8001" validate:"hostname_port"`

	// Static file serving
	StaticRoot string `env:"STATIC_ROOT"`

	// Basic Auth credential store
	HtpasswdPath string `env:"HTPASSWD_PATH"`

	// TLS certificate paths (provisioned externally)
	CertFile string `env:"CERT_FILE"`
	KeyFile  string `env:"KEY_FILE"`

	// Admin API
	AdminPort string `env:"ADMIN_PORT" envDefault:"8088"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load loads the configuration from environment variables and .env files
func Load() (*Config, error) {
	// Load .env file if it exists. godotenv does not overwrite variables
	// that are already set, so the real environment always wins.
	envLocations := []string{
		".env",
		"/etc/nodegate/.env",
	}
	if envName := os.Getenv("ENV"); envName != "" {
		envLocations = append([]string{fmt.Sprintf(".env.%s", envName)}, envLocations...)
	}
	for _, loc := range envLocations {
		if err := godotenv.Load(loc); err == nil {
			break
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Set default log file if not set
	if cfg.LogFile == "" {
		if cfg.Mode == ModeProduction {
			cfg.LogFile = "/var/log/nodegate/gateway.log"
		} else {
			cfg.LogFile = "./logs/gateway.log"
		}
	}

	return cfg, nil
}

// applyDefaults derives paths that depend on other fields. The defaults
// mirror the deployment layout: certificates under the letsencrypt live
// directory for the node host, htpasswd and static files under the
// install directory.
func (c *Config) applyDefaults() {
	if c.HtpasswdPath == "" && c.InstallDir != "" {
		c.HtpasswdPath = filepath.Join(c.InstallDir, "htpasswd")
	}
	if c.StaticRoot == "" && c.InstallDir != "" {
		c.StaticRoot = filepath.Join(c.InstallDir, "public")
	}
	if c.CertFile == "" && c.NodeHost != "" {
		c.CertFile = filepath.Join("/etc/letsencrypt/live", c.NodeHost, "fullchain.pem")
	}
	if c.KeyFile == "" && c.NodeHost != "" {
		c.KeyFile = filepath.Join("/etc/letsencrypt/live", c.NodeHost, "privkey.pem")
	}
}

// Validate checks the configuration using struct tags plus the
// cross-field rules that tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Mode == ModeProduction {
		if c.CertFile == "" || c.KeyFile == "" {
			return fmt.Errorf("production mode requires certificate and key paths")
		}
		if c.HtpasswdPath == "" {
			return fmt.Errorf("production mode requires an htpasswd path")
		}
	}

	return nil
}

// IsProduction reports whether the gateway runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Mode == ModeProduction
}
