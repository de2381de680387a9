// Package cli wires the command-line surface: feed management, reading,
// starring, AI summaries and chat, notes, search, and the expiry sweep.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/config"
	"github.com/driftrss/drift/internal/debuglog"
	"github.com/driftrss/drift/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig string
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:   "drift",
	Short: "Local-first RSS reader with AI summaries, chat, and notes",
	Long: `drift caches your feeds locally, expires unread articles after 24 hours,
and keeps everything you star forever. AI features (summaries, per-article
chat, feed filters) are optional and need an API key.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to database file (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateConfigCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("drift %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path := filepath.Join(home, ".config", "drift", "config.toml")
		if err := config.GenerateDefaultConfig(path); err != nil {
			return fmt.Errorf("generating config: %w", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", path)
		return nil
	},
}

func Execute() {
	if level := os.Getenv("DRIFT_DEBUG"); level != "" {
		if err := debuglog.Setup(debuglog.ParseLogLevel(level)); err != nil {
			fmt.Fprintf(os.Stderr, "debug logging disabled: %v\n", err)
		}
	}
	defer debuglog.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// app bundles the opened store and loaded config for one command invocation.
type app struct {
	cfg   *config.Config
	store *storage.Store
}

func openApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}

	store, err := storage.NewStore(expandHome(cfg.Database.Path), storage.WithTTL(cfg.Cleanup.ArticleTTL))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &app{cfg: cfg, store: store}, nil
}

func (a *app) Close() {
	a.store.Close()
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
