package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core directories
	WorkDir   string `yaml:"work_dir"`
	ProxyDir  string `yaml:"proxy_dir"`
	OutputDir string `yaml:"output_dir"`
	CacheDB   string `yaml:"cache_db"`

	Proxy  ProxyConfig  `yaml:"proxy"`
	Still  StillConfig  `yaml:"still"`
	Slate  SlateConfig  `yaml:"slate"`
	Render RenderConfig `yaml:"render"`
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

// ProxyConfig defines the canonical proxy encoding
type ProxyConfig struct {
	Width  int     `yaml:"width"`
	FPS    float64 `yaml:"fps"`
	CRF    int     `yaml:"crf"`
	Preset string  `yaml:"preset"`
}

type StillConfig struct {
	DurationSec float64 `yaml:"duration_s"`
}

type SlateConfig struct {
	DurationSec float64 `yaml:"duration_s"`
}

type RenderConfig struct {
	KeepIntermediates bool `yaml:"keep_intermediates"`
	StrictDegenerate  bool `yaml:"strict_degenerate"`
}

type FFmpegConfig struct {
	Threads int `yaml:"threads"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:   "./work",
		ProxyDir:  "./work/proxies",
		OutputDir: "./output",
		CacheDB:   "./work/proxycache.db",
		Proxy: ProxyConfig{
			Width:  1280,
			FPS:    30,
			CRF:    23,
			Preset: "medium",
		},
		Still: StillConfig{
			DurationSec: 1.25,
		},
		Slate: SlateConfig{
			DurationSec: 3.0,
		},
		Render: RenderConfig{
			KeepIntermediates: false,
			StrictDegenerate:  false,
		},
		FFmpeg: FFmpegConfig{
			Threads: 0,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./spotreel.yaml",
		"./spotreel.yml",
		filepath.Join(os.Getenv("HOME"), ".spotreel", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
