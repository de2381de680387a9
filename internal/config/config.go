package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	AI       AIConfig       `mapstructure:"ai"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type FeedConfig struct {
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	UserAgent       string        `mapstructure:"user_agent"`
}

type CleanupConfig struct {
	ArticleTTL    time.Duration `mapstructure:"article_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type AIConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
	// BaseURL overrides the provider endpoint, for proxies and tests.
	BaseURL string `mapstructure:"base_url"`
}

// Key resolves the API key from config or the DRIFT_AI_API_KEY environment
// variable. Empty means AI features are unconfigured.
func (a AIConfig) Key() string {
	if a.APIKey != "" {
		return a.APIKey
	}
	return os.Getenv("DRIFT_AI_API_KEY")
}

func (a AIConfig) Enabled() bool {
	return a.Key() != ""
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(homeDir, ".drift.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(homeDir, ".drift", "index.bleve"),
		},
		Feed: FeedConfig{
			HTTPTimeout:     30 * time.Second,
			RefreshInterval: 5 * time.Minute,
			UserAgent:       "drift/1.0 (https://github.com/driftrss/drift)",
		},
		Cleanup: CleanupConfig{
			ArticleTTL:    24 * time.Hour,
			SweepInterval: 1 * time.Hour,
		},
		AI: AIConfig{
			Provider:  "claude",
			MaxTokens: 1024,
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("database", cfg.Database)
	v.SetDefault("feed", cfg.Feed)
	v.SetDefault("cleanup", cfg.Cleanup)
	v.SetDefault("ai", cfg.AI)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "drift")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DRIFT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
}

func Save(config *Config, path string) error {
	// Durations as strings for TOML readability
	doc := map[string]any{
		"database": map[string]any{
			"path":         config.Database.Path,
			"timeout":      config.Database.Timeout.String(),
			"search_index": config.Database.SearchIndex,
		},
		"feed": map[string]any{
			"http_timeout":     config.Feed.HTTPTimeout.String(),
			"refresh_interval": config.Feed.RefreshInterval.String(),
			"user_agent":       config.Feed.UserAgent,
		},
		"cleanup": map[string]any{
			"article_ttl":    config.Cleanup.ArticleTTL.String(),
			"sweep_interval": config.Cleanup.SweepInterval.String(),
		},
		"ai": map[string]any{
			"provider":   config.AI.Provider,
			"model":      config.AI.Model,
			"api_key":    config.AI.APIKey,
			"max_tokens": config.AI.MaxTokens,
		},
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
