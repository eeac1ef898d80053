// Package config loads formwalk CLI configuration.
//
// Values are layered, lowest to highest priority: built-in defaults,
// formwalk.yaml (or formwalk.yml), FORMWALK_* environment variables and
// explicitly set command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Output formats.
const (
	OutputJSON  = "json"
	OutputText  = "text"
	OutputTable = "table"
)

// Defaults.
const (
	DefaultOutput     = OutputJSON
	DefaultStorePath  = ".formwalk/snapshots.db"
	DefaultDebounceMS = 200
	DefaultWorkers    = 4
)

const envPrefix = "FORMWALK_"

// Config holds all CLI configuration options.
type Config struct {
	Output    string      `koanf:"output"`
	Verbose   bool        `koanf:"verbose"`
	StorePath string      `koanf:"store_path"`
	Watch     WatchConfig `koanf:"watch"`
	Batch     BatchConfig `koanf:"batch"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	DebounceMS int `koanf:"debounce_ms"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	Workers int `koanf:"workers"`
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
)

// findConfigFile finds the config file to use.
// Priority: explicit path > formwalk.yaml > formwalk.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"formwalk.yaml", "formwalk.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// LoadConfig loads configuration from defaults, file, environment variables
// and flags. Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"output":            DefaultOutput,
		"verbose":           false,
		"store_path":        DefaultStorePath,
		"watch.debounce_ms": DefaultDebounceMS,
		"batch.workers":     DefaultWorkers,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment: FORMWALK_WATCH_DEBOUNCE_MS -> watch.debounce_ms
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKey(f.Name)
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable name to a config key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range []string{"watch", "batch"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// flagKey maps a command-line flag to a config key. Flags that are not
// configuration (input files and the like) are skipped.
func flagKey(name string) (string, bool) {
	switch name {
	case "output", "verbose":
		return name, true
	case "store":
		return "store_path", true
	case "debounce":
		return "watch.debounce_ms", true
	case "workers":
		return "batch.workers", true
	}
	return "", false
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputJSON, OutputText, OutputTable:
	default:
		return fmt.Errorf("invalid output format %q (want json, text or table)", c.Output)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	return nil
}
