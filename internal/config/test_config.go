package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:    "",
			Timeout: 1 * time.Second,
		},
		Feed: FeedConfig{
			HTTPTimeout:     5 * time.Second,
			RefreshInterval: 1 * time.Minute,
			UserAgent:       "drift-test/1.0",
		},
		Cleanup: CleanupConfig{
			ArticleTTL:    24 * time.Hour,
			SweepInterval: 1 * time.Hour,
		},
		AI: AIConfig{
			Provider:  "claude",
			Model:     "test-model",
			MaxTokens: 64,
		},
	}
}
