// Package config loads tuibridge's configuration the way its ancestor
// loads its own: a package-level viper instance reading config.yaml from an
// XDG-aware directory, defaults registered from a single source of truth,
// and a typed struct built via mapstructure.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// MessengerConfig holds the chat bot's own connection settings. The
// messenger client itself is an external collaborator (spec §6); this is
// only its configuration surface.
type MessengerConfig struct {
	Token            string   `mapstructure:"token"`
	AllowedUserIDs   []int64  `mapstructure:"allowed_user_ids"`
	AllowedUsernames []string `mapstructure:"allowed_usernames"`
}

// SessionConfig bounds how many concurrent agent sessions one user may run
// and the timings around their lifecycle.
type SessionConfig struct {
	MaxConcurrentPerUser int `mapstructure:"max_concurrent_per_user"`
	IdleTimeoutMinutes   int `mapstructure:"idle_timeout_minutes"`
	TerminateGraceMillis int `mapstructure:"terminate_grace_millis"`
	PollIntervalMillis   int `mapstructure:"poll_interval_millis"`
}

// AgentConfig locates the headless CLI binary the supervisor shells out to.
type AgentConfig struct {
	BinaryPath     string   `mapstructure:"binary_path"`
	ExtraArgs      []string `mapstructure:"extra_args"`
	DefaultProject string   `mapstructure:"default_project"`
	ProjectsRoot   string   `mapstructure:"projects_root"`
	UpdateCommand  string   `mapstructure:"update_command"`
}

// StreamingConfig holds per-message and global edit-interval settings (spec
// §5). These values are loaded but not read anywhere else: the supervisor
// builds its streaming controller with fixed intervals of 1500ms per message
// and 1200ms globally, the same values as these defaults.
type StreamingConfig struct {
	PerMessageIntervalMillis int `mapstructure:"per_message_interval_millis"`
	GlobalIntervalMillis     int `mapstructure:"global_interval_millis"`
}

// PersistenceConfig controls the session-history store.
type PersistenceConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Config is the full, typed configuration tree.
type Config struct {
	Messenger   MessengerConfig   `mapstructure:"messenger"`
	Session     SessionConfig     `mapstructure:"session"`
	Agent       AgentConfig       `mapstructure:"agent"`
	Streaming   StreamingConfig   `mapstructure:"streaming"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// GetDefaults is the single source of truth for default values, consumed by
// Load.
func GetDefaults() map[string]any {
	return map[string]any{
		"session.max_concurrent_per_user":      3,
		"session.idle_timeout_minutes":         30,
		"session.terminate_grace_millis":       5000,
		"session.poll_interval_millis":         300,
		"agent.binary_path":                    "claude",
		"agent.update_command":                 "claude update",
		"streaming.per_message_interval_millis": 1500,
		"streaming.global_interval_millis":      1200,
		"persistence.enabled":                  true,
		"persistence.max_age_days":              90,
	}
}

// Load reads config.yaml from the XDG config directory (or the working
// directory as a fallback), applying GetDefaults for anything unset. A
// missing config file is not an error.
func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	for key, value := range GetDefaults() {
		viper.SetDefault(key, value)
	}

	viper.SetEnvPrefix("TUIBRIDGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Persistence.Path == "" {
		dataDir, err := GetDataDir()
		if err != nil {
			return nil, err
		}
		cfg.Persistence.Path = filepath.Join(dataDir, "sessions.db")
	}

	if cfg.Messenger.Token == "" {
		cfg.Messenger.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	return &cfg, nil
}

// SetMessengerConfig saves the messenger section, merging with whatever
// else is already on disk rather than overwriting the whole file.
func SetMessengerConfig(c MessengerConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	_ = v.ReadInConfig()

	v.Set("messenger.token", c.Token)
	v.Set("messenger.allowed_user_ids", c.AllowedUserIDs)
	v.Set("messenger.allowed_usernames", c.AllowedUsernames)

	return v.WriteConfig()
}

// appName names the XDG subdirectory tuibridge's config, data, and runtime
// files live under.
const appName = "tuibridge"

// GetConfigDir returns $XDG_CONFIG_HOME/tuibridge, falling back to
// ~/.config/tuibridge.
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// GetConfigPath returns the path config.yaml should be read from or written
// to.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetDataDir returns $XDG_DATA_HOME/tuibridge, falling back to
// ~/.local/share/tuibridge.
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName+"-data"), nil
	}
	return filepath.Join(homeDir, ".local", "share", appName), nil
}

// GetRuntimeDir returns $XDG_RUNTIME_DIR/tuibridge, falling back to a
// temp-dir based path on hosts with no runtime directory (e.g. non-systemd).
func GetRuntimeDir() string {
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, appName)
	}
	return filepath.Join(os.TempDir(), appName)
}
