package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultConfigFile = "config.yaml"

type Config struct {
	Port      string `mapstructure:"port" yaml:"port"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`

	Workspace WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	YTDLP     YTDLPConfig     `mapstructure:"ytdlp" yaml:"ytdlp"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	Preview   PreviewConfig   `mapstructure:"preview" yaml:"preview"`
}

type WorkspaceConfig struct {
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
}

type BatchConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	ItemTimeout    time.Duration `mapstructure:"item_timeout" yaml:"item_timeout"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ServeConfig struct {
	InlineLimit uint64 `mapstructure:"inline_limit" yaml:"inline_limit"`
}

type HistoryConfig struct {
	DisplayLimit int `mapstructure:"display_limit" yaml:"display_limit"`
	Capacity     int `mapstructure:"capacity" yaml:"capacity"`
}

type YTDLPConfig struct {
	Binary           string        `mapstructure:"binary" yaml:"binary"`
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
}

type FFmpegConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary"`
}

type PreviewConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

const (
	MinConcurrency = 1
	MaxConcurrency = 10
	MinItemTimeout = time.Minute
	MaxItemTimeout = 60 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("static_dir", "./static")
	v.SetDefault("workspace.base_dir", os.TempDir())
	v.SetDefault("workspace.prefix", "ytdlp_")
	v.SetDefault("batch.max_concurrency", 3)
	v.SetDefault("batch.item_timeout", 15*time.Minute)
	v.SetDefault("batch.timeout", 3*time.Hour)
	v.SetDefault("serve.inline_limit", uint64(100<<20))
	v.SetDefault("history.display_limit", 10)
	v.SetDefault("history.capacity", 100)
	v.SetDefault("ytdlp.binary", "yt-dlp")
	v.SetDefault("ytdlp.progress_interval", 500*time.Millisecond)
	v.SetDefault("ffmpeg.binary", "ffmpeg")
	v.SetDefault("preview.timeout", 15*time.Second)
}

// Load reads defaults, then the optional yaml file, then the environment.
// An explicit path must exist; without one config.yaml is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port is required")
	}
	if c.YTDLP.Binary == "" {
		return errors.New("ytdlp.binary is required")
	}

	if n := c.Batch.MaxConcurrency; n < MinConcurrency || n > MaxConcurrency {
		c.Batch.MaxConcurrency = max(MinConcurrency, min(n, MaxConcurrency))
		slog.Warn("batch.max_concurrency out of range, clamped", "value", n, "using", c.Batch.MaxConcurrency)
	}
	if d := c.Batch.ItemTimeout; d < MinItemTimeout || d > MaxItemTimeout {
		c.Batch.ItemTimeout = max(MinItemTimeout, min(d, MaxItemTimeout))
		slog.Warn("batch.item_timeout out of range, clamped", "value", d, "using", c.Batch.ItemTimeout)
	}
	if c.Batch.Timeout < 0 {
		c.Batch.Timeout = 0
	}
	if c.Serve.InlineLimit == 0 {
		c.Serve.InlineLimit = 100 << 20
	}
	if c.History.Capacity <= 0 {
		c.History.Capacity = 100
	}
	if c.History.DisplayLimit <= 0 || c.History.DisplayLimit > c.History.Capacity {
		c.History.DisplayLimit = min(10, c.History.Capacity)
	}
	if c.Workspace.Prefix == "" {
		c.Workspace.Prefix = "ytdlp_"
	}
	return nil
}

func (c *Config) Level() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
