package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "ORDO",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "ORDO",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (ORDO_*)
// 3. Project config (.ordo.yaml in current directory)
// 4. User config (~/.config/ordo/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".ordo")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config.
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "ordo"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("engine.default_workflow", "feature")
	l.v.SetDefault("engine.agent_timeout", "10m")
	l.v.SetDefault("engine.max_retries", 2)
	l.v.SetDefault("engine.heartbeat_interval", "30s")
	l.v.SetDefault("engine.zombie_threshold", "5m")
	l.v.SetDefault("engine.retry_base_delay", "1s")
	l.v.SetDefault("engine.retry_max_delay", "30s")
	l.v.SetDefault("engine.workflow_dir", ".ordo/workflows")

	l.v.SetDefault("tiers.max_tier", "premium")
	l.v.SetDefault("tiers.cost_optimization", false)

	l.v.SetDefault("sessions.dir", ".ordo/sessions")
	l.v.SetDefault("sessions.retention", "168h")

	l.v.SetDefault("runner.path", "ordo-agent")

	l.v.SetDefault("vcs.enabled", false)
	l.v.SetDefault("vcs.remote", "origin")
	l.v.SetDefault("vcs.branch_prefix", "ordo/")
	l.v.SetDefault("vcs.pr_failure_mode", "fail")
	l.v.SetDefault("vcs.draft_prs", false)

	l.v.SetDefault("tasks.path", ".ordo/tasks.db")

	l.v.SetDefault("server.addr", "127.0.0.1:7430")
	l.v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}
