package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/enviro/pkg/enviro/validate"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Path         string            `mapstructure:"path"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// ValidationConfig controls corruption checks.
type ValidationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	OnError string `mapstructure:"on_error"`
}

// NamesConfig controls name comparison.
type NamesConfig struct {
	// FoldCase is "auto", "true" or "false".
	FoldCase string `mapstructure:"fold_case"`
}

// BackendConfig selects the files used where there is no registry.
type BackendConfig struct {
	UserFile    string `mapstructure:"user_file"`
	MachineFile string `mapstructure:"machine_file"`
}

// StagingConfig locates the staging database.
type StagingConfig struct {
	Path string `mapstructure:"path"`
}

// JournalConfig controls the commit journal.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// Config represents the application configuration.
type Config struct {
	Validation ValidationConfig `mapstructure:"validation"`
	Names      NamesConfig      `mapstructure:"names"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Staging    StagingConfig    `mapstructure:"staging"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads configuration from the default locations and environment.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/enviro/config.yaml
//   - $HOME/.config/enviro/config.yaml
//
// Environment variables are prefixed with ENVIRO_ (e.g. ENVIRO_OUTPUT_FORMAT).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is like Load but reads path when it is non-empty. A missing
// explicit file is an error; a missing default file is not.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if err := Configure(v, path); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// Configure sets search paths, env binding and defaults on v without
// reading anything. The CLI uses it on the global viper so flags bound
// there take precedence.
func Configure(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("validation.enabled", true)
	v.SetDefault("validation.on_error", DefaultOnError)
	v.SetDefault("names.fold_case", DefaultFoldCase)
	v.SetDefault("backend.user_file", "")
	v.SetDefault("backend.machine_file", "")
	v.SetDefault("staging.path", "") // Empty means DefaultStagingPath
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "") // Empty means DefaultJournalPath
	v.SetDefault("journal.retention_days", DefaultRetentionDays)
	v.SetDefault("output.format", DefaultOutputFormat)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.console_level", DefaultConsoleLevel)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", DefaultMaxLogSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponents)
}

// FromViper decodes v into a Config, expands ~ in paths and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	for _, p := range []*string{&cfg.Backend.UserFile, &cfg.Backend.MachineFile, &cfg.Staging.Path, &cfg.Journal.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := validate.ParsePolicy(c.Validation.OnError); err != nil {
		return fmt.Errorf("%w: validation.on_error: %w", ErrInvalidConfig, err)
	}
	if _, _, err := c.FoldCase(); err != nil {
		return err
	}
	if c.Journal.RetentionDays < 0 {
		return fmt.Errorf("%w: journal.retention_days must not be negative", ErrInvalidConfig)
	}
	return nil
}

// FoldCase resolves names.fold_case. auto reports false for set so the
// caller applies the platform default.
func (c *Config) FoldCase() (fold, set bool, err error) {
	s := strings.ToLower(strings.TrimSpace(c.Names.FoldCase))
	if s == "" || s == DefaultFoldCase {
		return false, false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false, fmt.Errorf("%w: names.fold_case must be auto, true or false, got %q", ErrInvalidConfig, c.Names.FoldCase)
	}
	return b, true, nil
}

// StagingPath returns the configured staging directory or the default.
func (c *Config) StagingPath() string {
	if c.Staging.Path != "" {
		return c.Staging.Path
	}
	return DefaultStagingPath()
}

// JournalPath returns the configured journal directory or the default.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return DefaultJournalPath()
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault writes a commented default config file and returns its
// path. created is false when a file already exists; it is left untouched.
func WriteDefault() (path string, created bool, err error) {
	if err := EnsureConfigDir(); err != nil {
		return "", false, err
	}
	path, err = ConfigPath()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# enviro configuration

# Corruption checks flag values that reference missing directories.
validation:
  enabled: true
  # What a failed filesystem probe means: corrupted, clean or propagate
  on_error: %s

names:
  # Case-insensitive names: auto (Windows only), true or false
  fold_case: %s

# Files used where there is no registry
backend:
  # Empty means $XDG_CONFIG_HOME/environment.d/60-enviro.conf
  user_file: ""
  # Empty means /etc/environment
  machine_file: ""

staging:
  # Empty means %s
  path: ""

journal:
  enabled: true
  # Empty means %s
  path: ""
  retention_days: %d

output:
  # pretty, plain, json or yaml
  format: %s

logging:
  # Log level: debug, info, warn, error
  level: %s
  # Also log to stderr at this level (empty disables)
  console_level: ""
  # Empty means %s
  path: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    store: info
    commit: info
    osenv: info
    staging: warn
    journal: warn
`, DefaultOnError, DefaultFoldCase, DefaultStagingPath(), DefaultJournalPath(),
		DefaultRetentionDays, DefaultOutputFormat, DefaultLogLevel, DefaultLogPath(), DefaultMaxLogSize)

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write default config: %w", err)
	}
	return path, true, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/enviro/ for the staging database and journal.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/enviro/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultStagingPath returns the default staging database directory.
func DefaultStagingPath() string {
	return filepath.Join(DataDir(), "staging")
}

// DefaultJournalPath returns the default journal directory.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
