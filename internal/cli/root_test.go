package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}

	got := expandHome("~/data/drift.db")
	want := filepath.Join(home, "data", "drift.db")
	if got != want {
		t.Errorf("expandHome(~/data/drift.db) = %q, want %q", got, want)
	}

	if got := expandHome("/abs/path.db"); got != "/abs/path.db" {
		t.Errorf("absolute path must pass through, got %q", got)
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{time.Now().Add(-10 * time.Second), "just now"},
		{time.Now().Add(-5 * time.Minute), "5m ago"},
		{time.Now().Add(-3 * time.Hour), "3h ago"},
		{time.Now().Add(-48 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		if got := relativeTime(tt.t); got != tt.want {
			t.Errorf("relativeTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"feed", "articles", "read", "summarize",
		"star", "unstar", "collection",
		"chat", "note", "search", "sweep",
		"version", "generate-config",
	}
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestFeedListAgainstEmptyDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetArgs([]string{
		"--config", configPath,
		"--db", filepath.Join(dir, "drift.db"),
		"feed", "list",
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("feed list on a fresh database: %v", err)
	}
}
