package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvConfigFile names the env var that points at a config file.
const EnvConfigFile = "FTPFINDER_CONFIG"

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// envSpec maps an environment variable onto a config key path.
type envSpec struct {
	Name string
	Path []string
}

// getEnvSpecs lists the short env aliases. Every key is also reachable as
// FTPFINDER_<SECTION>_<KEY> through the automatic mapping.
func getEnvSpecs() []envSpec {
	return []envSpec{
		{Name: "FTPFINDER_API_URL", Path: []string{"api", "base_url"}},
		{Name: "FTPFINDER_API_TIMEOUT", Path: []string{"api", "timeout"}},
		{Name: "FTPFINDER_PASSWORD", Path: []string{"auth", "password"}},
		{Name: "FTPFINDER_LOG_LEVEL", Path: []string{"logging", "level"}},
		{Name: "FTPFINDER_LOG_PROFILE", Path: []string{"logging", "profile"}},
		{Name: "FTPFINDER_LOG_FILE", Path: []string{"logging", "file"}},
		{Name: "FTPFINDER_POLL_INTERVAL", Path: []string{"poll", "interval"}},
		{Name: "FTPFINDER_HOST", Path: []string{"server", "host"}},
		{Name: "FTPFINDER_PORT", Path: []string{"server", "port"}},
	}
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", "5s")
	v.SetDefault("api.rate_limit", 0)

	v.SetDefault("poll.interval", "1s")
	v.SetDefault("poll.fetch_timeout", "3s")

	v.SetDefault("ui.message_ttl", "3s")

	v.SetDefault("auth.password", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")
	v.SetDefault("logging.file", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.index_step", "50ms")
}

// Load resolves configuration using the default file search. Overrides are
// nested maps keyed like the YAML file and take precedence over everything
// else.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile is Load with an explicit config file. An empty path falls back
// to FTPFINDER_CONFIG and then the default search; a missing file is only
// an error when the path was given explicitly.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		long := strings.ToUpper(AppName + "_" + strings.Join(spec.Path, "_"))
		if err := v.BindEnv(strings.Join(spec.Path, "."), spec.Name, long); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		for _, dir := range getUserConfigPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = DefaultLogFile()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// getUserConfigPaths lists the directories searched for ftpfinder.yaml.
func getUserConfigPaths() []string {
	paths := []string{"."}
	if gfconfig.GetXDGBaseDirs().ConfigHome != "" {
		paths = append(paths, gfconfig.GetAppConfigDir(AppName))
	}
	return paths
}

func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}
