// Package config loads the local client configuration from file, environment
// and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/orionstore/orion/internal/resolver"
	"github.com/orionstore/orion/internal/syncer"
)

// EnvPrefix prefixes every environment variable, e.g. ORION_DATA_DIR.
const EnvPrefix = "ORION"

// TimeoutConfig bounds the remote fetches of a sync.
type TimeoutConfig struct {
	Default time.Duration `mapstructure:"default"`
	Config  time.Duration `mapstructure:"config"`
	Mirror  time.Duration `mapstructure:"mirror"`
}

// FetchConfig tunes the release fetch queue.
type FetchConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
}

// GitHubConfig configures the release provider.
type GitHubConfig struct {
	APIURL string `mapstructure:"api_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the local client configuration.
type Config struct {
	DataDir    string        `mapstructure:"data_dir"`
	CatalogURL string        `mapstructure:"catalog_url"`
	MirrorURL  string        `mapstructure:"mirror_url"`
	ConfigURL  string        `mapstructure:"config_url"`
	Timeouts   TimeoutConfig `mapstructure:"timeouts"`
	Fetch      FetchConfig   `mapstructure:"fetch"`
	GitHub     GitHubConfig  `mapstructure:"github"`
	Log        LogConfig     `mapstructure:"log"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// StorePath returns the path of the persisted key/value store.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "store.json")
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".orion"
		}
		return filepath.Join(home, ".config", "orion")
	}
	return filepath.Join(dir, "orion")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("catalog_url", syncer.DefaultCatalogURL)
	v.SetDefault("mirror_url", syncer.DefaultMirrorURL)
	v.SetDefault("config_url", syncer.DefaultConfigURL)
	v.SetDefault("timeouts.default", syncer.DefaultTimeout)
	v.SetDefault("timeouts.config", syncer.DefaultConfigTimeout)
	v.SetDefault("timeouts.mirror", syncer.DefaultMirrorTimeout)
	v.SetDefault("fetch.batch_size", resolver.DefaultBatchSize)
	v.SetDefault("fetch.batch_delay", resolver.DefaultBatchDelay)
	v.SetDefault("github.api_url", "")
	v.SetDefault("log.level", "warn")
}

// Load reads the configuration. When file is empty, orion.yaml is looked up in
// the working directory and the default data directory; a missing file is not
// an error. Flags that were set on the command line override file and
// environment values.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("orion")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.Fetch.BatchSize <= 0 {
		return nil, fmt.Errorf("fetch.batch_size must be positive, got %d", cfg.Fetch.BatchSize)
	}
	return &cfg, nil
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"data-dir":    "data_dir",
	"catalog-url": "catalog_url",
	"mirror-url":  "mirror_url",
	"config-url":  "config_url",
	"api-url":     "github.api_url",
	"log-level":   "log.level",
}
