package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// EnvPrefix is the prefix of environment overrides, e.g. GROOM_WORKERS.
const EnvPrefix = "GROOM"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// ExcludeConfig lists basename patterns to leave alone.
type ExcludeConfig struct {
	Dirs  []string `mapstructure:"dirs" yaml:"dirs"`
	Files []string `mapstructure:"files" yaml:"files"`
}

// JournalConfig configures the rename journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// OwnerConfig holds "from:to" id pairs for the chown action.
type OwnerConfig struct {
	UIDs []string `mapstructure:"uids" yaml:"uids"`
	GIDs []string `mapstructure:"gids" yaml:"gids"`
}

// Config represents the application configuration.
type Config struct {
	Workers          int           `mapstructure:"workers" yaml:"workers"`
	FollowSymlinks   bool          `mapstructure:"follow_symlinks" yaml:"follow_symlinks"`
	Substring        string        `mapstructure:"substring" yaml:"substring"`
	Action           string        `mapstructure:"action" yaml:"action"`
	DryRun           bool          `mapstructure:"dry_run" yaml:"dry_run"`
	Graceful         bool          `mapstructure:"graceful" yaml:"graceful"`
	ParallelWalk     bool          `mapstructure:"parallel_walk" yaml:"parallel_walk"`
	Watch            bool          `mapstructure:"watch" yaml:"watch"`
	Quiet            bool          `mapstructure:"quiet" yaml:"quiet"`
	Verbose          bool          `mapstructure:"verbose" yaml:"verbose"`
	Output           string        `mapstructure:"output" yaml:"output"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
	Exclude          ExcludeConfig `mapstructure:"exclude" yaml:"exclude"`
	Journal          JournalConfig `mapstructure:"journal" yaml:"journal"`
	Owner            OwnerConfig   `mapstructure:"owner" yaml:"owner"`
	Logging          LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workers", 0) // 0 means runtime.NumCPU()
	v.SetDefault("follow_symlinks", false)
	v.SetDefault("substring", DefaultSubstring)
	v.SetDefault("action", DefaultAction)
	v.SetDefault("dry_run", false)
	v.SetDefault("graceful", false)
	v.SetDefault("parallel_walk", false)
	v.SetDefault("watch", false)
	v.SetDefault("quiet", false)
	v.SetDefault("verbose", false)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("progress_interval", DefaultProgressInterval)
	v.SetDefault("exclude.dirs", DefaultExcludeDirs)
	v.SetDefault("exclude.files", DefaultExcludeFiles)
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "") // empty means DataDir()/journal
	v.SetDefault("owner.uids", []string{})
	v.SetDefault("owner.gids", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // empty means logging.DefaultLogPath()
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", map[string]string{})
}

// Prepare sets defaults, environment binding and config file lookup on v.
// cfgFile overrides the search path when non-empty.
func Prepare(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// ReadFile reads the config file into v. A missing file in the default
// location is not an error; a missing explicit file is.
func ReadFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load loads configuration from file and environment variables into a
// fresh viper instance.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	Prepare(v, cfgFile)
	if err := ReadFile(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	switch c.Action {
	case ActionStrip:
		if c.Substring == "" {
			return fmt.Errorf("%w: substring must not be empty", ErrInvalidConfig)
		}
	case ActionChown:
		if len(c.Owner.UIDs) == 0 && len(c.Owner.GIDs) == 0 {
			return fmt.Errorf("%w: chown needs owner.uids or owner.gids", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidConfig, c.Action)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("%w: progress_interval must not be negative", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	if c.Logging.Rotation.MaxSize != "" {
		if _, err := types.ParseSize(c.Logging.Rotation.MaxSize); err != nil {
			return fmt.Errorf("%w: logging.rotation.max_size: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Rotation converts the rotation settings for the logging package.
func (c *Config) Rotation() logging.RotationConfig {
	rc := logging.DefaultRotationConfig()
	if size, err := types.ParseSize(c.Logging.Rotation.MaxSize); err == nil && size > 0 {
		rc.MaxSize = size
	}
	if c.Logging.Rotation.MaxBackups > 0 {
		rc.MaxBackups = c.Logging.Rotation.MaxBackups
	}
	return rc
}

// JournalPath returns the configured journal directory or the default one.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		if p, err := ExpandPath(c.Journal.Path); err == nil {
			return p
		}
	}
	return filepath.Join(DataDir(), "journal")
}

// ConfigDir returns $XDG_CONFIG_HOME/groom/.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "groom")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/groom/ for the journal.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "groom")
}

// StateDir returns $XDG_STATE_HOME/groom/ for logs and run locks.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "groom")
}

// ExpandPath expands ~ in a path to the user's home directory.
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

// WriteDefault writes a commented default config to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# groom configuration

# Number of workers (0 = one per CPU)
workers: 0

# Traverse symlinked directories
follow_symlinks: false

# Action applied to every file: strip or chown
action: %s

# Removed from file names by the strip action
substring: %q

# Upper bound on a worker's wait for more work
poll_interval: %s

# Minimum time between status line updates; 0 redraws after every item
progress_interval: %s

# Summary format: pretty, plain, json or yaml
output: %s

# Basename patterns to leave alone
exclude:
  dirs:
    - .snapshot
  files:
    - .DS_Store

# Record every rename so "groom history" can list it
journal:
  enabled: false
  path: ""

# "from:to" pairs used by the chown action
owner:
  uids: []
  gids: []

logging:
  # debug, info, warn, error
  level: info
  # empty means $XDG_STATE_HOME/groom/groom.log
  path: ""
  rotation:
    max_size: %s
    max_backups: %d
  components: {}
`, DefaultAction, DefaultSubstring, DefaultPollInterval, DefaultProgressInterval,
		DefaultOutput, DefaultLogMaxSize, DefaultLogMaxBackups)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}
