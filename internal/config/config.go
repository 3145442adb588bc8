// Package config loads the bm configuration from config.yaml and BM_*
// environment variables using viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "BM"
)

// Config keys.
const (
	KeyDataDir           = "data_dir"
	KeyDatabase          = "database"
	KeyMaxSizeMB         = "storage.max_size_mb"
	KeyLegacyFile        = "legacy.file"
	KeyLegacyRedisURL    = "legacy.redis_url"
	KeyLegacyRedisPrefix = "legacy.redis_prefix"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyLogFile           = "log.file"
	KeyFetchEnabled      = "fetch.enabled"
	KeyFetchTimeout      = "fetch.timeout"
	KeyFetchRetries      = "fetch.retries"
	KeyFetchRetryDelay   = "fetch.retry_delay"
	KeyFetchUserAgent    = "fetch.user_agent"
	KeySearchDebounce    = "search.debounce"
	KeyExportDir         = "export.dir"
	KeyUndoCapacity      = "undo.capacity"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# bm configuration
# Every key can also be set with a BM_ environment variable,
# e.g. BM_LOG_LEVEL=debug or BM_FETCH_ENABLED=false.

# Where the database lives (default: ~/.local/share/bm)
# data_dir:
database: bookmarks.db

storage:
  # Refuse writes once the database grows beyond this size. 0 = unlimited.
  max_size_mb: 0

# One-time import of data from an older installation.
legacy:
  # file: ~/.config/bm/legacy.json
  # redis_url: redis://localhost:6379/0
  redis_prefix: "bm:"

log:
  level: warn     # debug, info, warn, error
  format: text    # text, json, logfmt
  # file: ~/.local/state/bm/bm.log

fetch:
  enabled: true
  timeout: 8s
  retries: 2
  retry_delay: 2s
  user_agent: "bm/1.0"

search:
  debounce: 300ms

export:
  dir: ""   # empty = ~/Downloads

undo:
  capacity: 50
`

// Config is the resolved configuration.
type Config struct {
	DataDir   string
	Database  string
	MaxSizeMB int64

	LegacyFile        string
	LegacyRedisURL    string
	LegacyRedisPrefix string

	LogLevel  string
	LogFormat string
	LogFile   string

	FetchEnabled    bool
	FetchTimeout    time.Duration
	FetchRetries    int
	FetchRetryDelay time.Duration
	FetchUserAgent  string

	SearchDebounce time.Duration
	ExportDir      string
	UndoCapacity   int
}

// DatabasePath returns the absolute database file path.
func (c Config) DatabasePath() string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(c.DataDir, c.Database)
}

// MaxSizeBytes converts MaxSizeMB for storage.Options.
func (c Config) MaxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}

// DefaultConfigDir returns ~/.config/bm.
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bm"
	}
	return filepath.Join(home, ".config", "bm")
}

// DefaultDataDir returns ~/.local/share/bm.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bm-data"
	}
	return filepath.Join(home, ".local", "share", "bm")
}

// New returns a viper instance with every default set and BM_* environment
// binding enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyDatabase, "bookmarks.db")
	v.SetDefault(KeyMaxSizeMB, 0)
	v.SetDefault(KeyLegacyFile, "")
	v.SetDefault(KeyLegacyRedisURL, "")
	v.SetDefault(KeyLegacyRedisPrefix, "bm:")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyFetchEnabled, true)
	v.SetDefault(KeyFetchTimeout, 8*time.Second)
	v.SetDefault(KeyFetchRetries, 2)
	v.SetDefault(KeyFetchRetryDelay, 2*time.Second)
	v.SetDefault(KeyFetchUserAgent, "bm/1.0")
	v.SetDefault(KeySearchDebounce, 300*time.Millisecond)
	v.SetDefault(KeyExportDir, "")
	v.SetDefault(KeyUndoCapacity, 50)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.yaml from configDir. It creates the directory and a
// commented default file on first run. A missing file is not an error.
func Load(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// LoadFile reads an explicit config file.
func LoadFile(path string) (*viper.Viper, error) {
	v := New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

// Decode resolves v into a Config, expanding ~ in paths.
func Decode(v *viper.Viper) (Config, error) {
	c := Config{
		DataDir:   expandHome(v.GetString(KeyDataDir)),
		Database:  v.GetString(KeyDatabase),
		MaxSizeMB: v.GetInt64(KeyMaxSizeMB),

		LegacyFile:        expandHome(v.GetString(KeyLegacyFile)),
		LegacyRedisURL:    v.GetString(KeyLegacyRedisURL),
		LegacyRedisPrefix: v.GetString(KeyLegacyRedisPrefix),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
		LogFile:   expandHome(v.GetString(KeyLogFile)),

		FetchEnabled:    v.GetBool(KeyFetchEnabled),
		FetchTimeout:    v.GetDuration(KeyFetchTimeout),
		FetchRetries:    v.GetInt(KeyFetchRetries),
		FetchRetryDelay: v.GetDuration(KeyFetchRetryDelay),
		FetchUserAgent:  v.GetString(KeyFetchUserAgent),

		SearchDebounce: v.GetDuration(KeySearchDebounce),
		ExportDir:      expandHome(v.GetString(KeyExportDir)),
		UndoCapacity:   v.GetInt(KeyUndoCapacity),
	}
	return c, c.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database must not be empty"))
	}
	if c.MaxSizeMB < 0 {
		errs = append(errs, errors.New("storage.max_size_mb must not be negative"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.FetchRetries < 0 {
		errs = append(errs, errors.New("fetch.retries must not be negative"))
	}
	if c.FetchRetryDelay < 0 {
		errs = append(errs, errors.New("fetch.retry_delay must not be negative"))
	}
	if c.SearchDebounce < 0 {
		errs = append(errs, errors.New("search.debounce must not be negative"))
	}
	if c.UndoCapacity <= 0 {
		errs = append(errs, errors.New("undo.capacity must be positive"))
	}
	return errors.Join(errs...)
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
