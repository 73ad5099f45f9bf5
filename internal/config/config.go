// Package config loads Charon's runtime configuration: hardcoded defaults,
// overridden by the flat configuration file named on the command line, per
// spec.md §6's CLI surface and key table.
//
// Environment variables (CHARON_LISTEN_PORT, etc.) override the file, and
// the file overrides the defaults below — the same precedence order
// HydraDNS's loader uses, narrowed to Charon's flat (non-nested) key set.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the Engine, Store and Forwarder need at
// startup, per spec.md §6's recognized configuration keys.
type Config struct {
	ListenPort        int
	ListenAddr        string
	Upstream          string
	UpstreamTimeoutMS int
	ZoneFile          string
	CacheTTL          int
	MaxCacheEntries   int
	Verbose           bool
}

// UpstreamTimeout returns UpstreamTimeoutMS as a time.Duration.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutMS) * time.Millisecond
}

// Load reads configuration from configPath (a flat file; may be empty to
// use only defaults and environment), applying spec.md §6's defaults for
// any key the file or environment doesn't set. dbValues seeds the settings
// a `--db PATH` store (internal/dbsettings) already holds: they override
// the hardcoded defaults below but are themselves overridden by configPath
// and the environment, per SPEC_FULL.md §2.2's precedence.
func Load(configPath string, dbValues map[string]string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	for k, val := range dbValues {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("CHARON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		ListenPort:        v.GetInt("listen_port"),
		ListenAddr:        v.GetString("listen_addr"),
		Upstream:          v.GetString("upstream"),
		UpstreamTimeoutMS: v.GetInt("upstream_timeout_ms"),
		ZoneFile:          v.GetString("zone_file"),
		CacheTTL:          v.GetInt("cache_ttl"),
		MaxCacheEntries:   v.GetInt("max_cache_entries"),
		Verbose:           v.GetBool("verbose"),
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_port", 53)
	v.SetDefault("listen_addr", "0.0.0.0")
	v.SetDefault("upstream", "cloudflare")
	v.SetDefault("upstream_timeout_ms", 3000)
	v.SetDefault("zone_file", "")
	v.SetDefault("cache_ttl", 300)
	v.SetDefault("max_cache_entries", 20000)
	v.SetDefault("verbose", false)
}

func validate(cfg Config) error {
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		return fmt.Errorf("config: listen_port out of range: %d", cfg.ListenPort)
	}
	if cfg.Upstream != "quad9" && cfg.Upstream != "cloudflare" {
		return fmt.Errorf("config: unknown upstream preset %q", cfg.Upstream)
	}
	if cfg.UpstreamTimeoutMS <= 0 {
		return fmt.Errorf("config: upstream_timeout_ms must be positive, got %d", cfg.UpstreamTimeoutMS)
	}
	return nil
}
