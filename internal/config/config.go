// Package config loads ftpfinder configuration from defaults, an optional
// YAML file, FTPFINDER_* environment variables and runtime overrides, in
// increasing order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
)

// AppName names the config directory, the env prefix and the log file.
const AppName = "ftpfinder"

// Config is the resolved process configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// APIConfig locates the index server. BaseURL is read once at startup.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// PollConfig tunes the job status poller.
type PollConfig struct {
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// UIConfig tunes the dashboard.
type UIConfig struct {
	MessageTTL time.Duration `mapstructure:"message_ttl" yaml:"message_ttl"`
}

// AuthConfig holds the admin password for non-interactive commands.
type AuthConfig struct {
	Password string `mapstructure:"password" yaml:"password"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Profile string `mapstructure:"profile" yaml:"profile"`
	File    string `mapstructure:"file" yaml:"file"`
}

// ServerConfig configures the mock API server.
type ServerConfig struct {
	Host      string        `mapstructure:"host" yaml:"host"`
	Port      int           `mapstructure:"port" yaml:"port"`
	IndexStep time.Duration `mapstructure:"index_step" yaml:"index_step"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Auth.Password != "" {
		c.Auth.Password = "********"
	}
	return c
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	var problems []string

	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	switch {
	case err != nil || u.Host == "":
		problems = append(problems, "api.base_url must include scheme and host (e.g. http://localhost:8000)")
	case u.Scheme != "http" && u.Scheme != "https":
		problems = append(problems, fmt.Sprintf("api.base_url scheme %q is not http or https", u.Scheme))
	}
	if c.API.Timeout <= 0 {
		problems = append(problems, "api.timeout must be positive")
	}
	if c.API.RateLimit < 0 {
		problems = append(problems, "api.rate_limit must not be negative")
	}
	if c.Poll.Interval <= 0 {
		problems = append(problems, "poll.interval must be positive")
	}
	if c.Poll.FetchTimeout <= 0 {
		problems = append(problems, "poll.fetch_timeout must be positive")
	}
	if c.UI.MessageTTL <= 0 {
		problems = append(problems, "ui.message_ttl must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToUpper(c.Logging.Profile) {
	case "STRUCTURED", "CONSOLE":
	default:
		problems = append(problems, fmt.Sprintf("logging.profile %q is not STRUCTURED or CONSOLE", c.Logging.Profile))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.IndexStep < 0 {
		problems = append(problems, "server.index_step must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DefaultLogFile is where the dashboard logs while it owns the terminal:
// the app's XDG data directory, or the temp dir when HOME is unset.
func DefaultLogFile() string {
	if gfconfig.GetXDGBaseDirs().DataHome == "" {
		return filepath.Join(os.TempDir(), AppName+".log")
	}
	return filepath.Join(gfconfig.GetAppDataDir(AppName), AppName+".log")
}
