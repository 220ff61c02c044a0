// Package config loads hapi's settings from flags, environment variables and
// an optional config.yaml in the root directory, in that order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "HAPI"
	// Overrides the base of the default root directory.
	RootEnv = "HAPI_ROOT"

	rootSuffix = ".hapi"
	logSubdir  = "log"
	dbSubdir   = "db"
	LogFile    = "hapi.log"
)

// Defaults.
const (
	DefaultDevToolsURL = "http://127.0.0.1:9222"
	DefaultCollector   = "http://127.0.0.1:39002"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultShortcutKey = "h"
	DefaultThrottleMin = 500 * time.Millisecond
	DefaultThrottleMax = 1500 * time.Millisecond
)

type Config struct {
	RootDir   string          `mapstructure:"root-dir"`
	Verbose   int             `mapstructure:"verbose"`
	Log       LogConfig       `mapstructure:"log"`
	DevTools  DevToolsConfig  `mapstructure:"devtools"`
	Collector CollectorConfig `mapstructure:"collector"`
	// Sent when the browser does not report its own.
	UserAgent string         `mapstructure:"user-agent"`
	Shortcut  ShortcutConfig `mapstructure:"shortcut"`
	Notify    NotifyConfig   `mapstructure:"notify"`
	// Keep a journal of finished dispatches.
	Journal  bool           `mapstructure:"journal"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
}

type LogConfig struct {
	MaxSize    int `mapstructure:"max-size"` // MB
	MaxBackups int `mapstructure:"max-backups"`
	MaxAge     int `mapstructure:"max-age"` // days
}

type DevToolsConfig struct {
	URL string `mapstructure:"url"`
}

type CollectorConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ShortcutConfig struct {
	Key string `mapstructure:"key"`
}

type NotifyConfig struct {
	Desktop bool `mapstructure:"desktop"`
}

// Spacing between two dispatches in watch mode.
type ThrottleConfig struct {
	Min time.Duration `mapstructure:"min"`
	Max time.Duration `mapstructure:"max"`
}

func (c *Config) LogDir() string { return filepath.Join(c.RootDir, logSubdir) }
func (c *Config) DBDir() string  { return filepath.Join(c.RootDir, dbSubdir) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", 0)
	v.SetDefault("log.max-size", 100)
	v.SetDefault("log.max-backups", 10)
	v.SetDefault("log.max-age", 30)
	v.SetDefault("devtools.url", DefaultDevToolsURL)
	v.SetDefault("collector.endpoint", DefaultCollector)
	v.SetDefault("collector.timeout", time.Duration(0))
	v.SetDefault("user-agent", DefaultUserAgent)
	v.SetDefault("shortcut.key", DefaultShortcutKey)
	v.SetDefault("notify.desktop", true)
	v.SetDefault("journal", true)
	v.SetDefault("throttle.min", DefaultThrottleMin)
	v.SetDefault("throttle.max", DefaultThrottleMax)
}

// Load builds the configuration. Every flag in flags is bound to the key of
// the same name.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	rootDir := v.GetString("root-dir")
	if rootDir == "" {
		base, err := DefaultRootBase()
		if err != nil {
			return nil, fmt.Errorf("无法获取默认根目录: %w, 请指定 --root-dir 参数或环境变量 %s", err, RootEnv)
		}
		rootDir = filepath.Join(base, rootSuffix)
	}
	v.Set("root-dir", rootDir)

	v.AddConfigPath(rootDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Throttle.Min < 0 || c.Throttle.Min > c.Throttle.Max {
		return fmt.Errorf("throttle.min (%s) 必须不大于 throttle.max (%s)", c.Throttle.Min, c.Throttle.Max)
	}
	if utf8.RuneCountInString(c.Shortcut.Key) != 1 {
		return fmt.Errorf("shortcut.key 必须是单个字符: %q", c.Shortcut.Key)
	}
	if c.Collector.Endpoint == "" {
		return errors.New("collector.endpoint 不能为空")
	}
	return nil
}

// DefaultRootBase picks the directory the root directory lives in.
func DefaultRootBase() (string, error) {
	if rootDir := os.Getenv(RootEnv); rootDir != "" {
		return rootDir, nil
	}

	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return localAppData, nil
		}
		return os.UserHomeDir()
	}

	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return xdgDataHome, nil
	}

	return os.UserHomeDir()
}
