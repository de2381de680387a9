package validation

import (
	"strings"
	"testing"
)

func TestValidateAndNormalize(t *testing.T) {
	v := NewFeedURLValidator()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"https passthrough", "https://example.org/feed.xml", "https://example.org/feed.xml", false},
		{"http passthrough", "http://example.org/rss", "http://example.org/rss", false},
		{"missing scheme defaults to https", "example.org/feed", "https://example.org/feed", false},
		{"whitespace trimmed", "  https://example.org/feed  ", "https://example.org/feed", false},
		{"empty", "", "", true},
		{"invalid characters", "https://example.org/<script>", "", true},
		{"localhost blocked", "http://localhost/feed", "", true},
		{"loopback blocked", "http://127.0.0.1:8080/feed", "", true},
		{"private ip blocked", "http://192.168.1.10/feed", "", true},
		{"traversal blocked", "https://example.org/../../etc/passwd", "", true},
		{"bad scheme", "ftp://example.org/feed", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateAndNormalize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateAndNormalize(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateAndNormalize(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateAndNormalize_Permissive(t *testing.T) {
	v := NewPermissiveFeedURLValidator()

	for _, u := range []string{
		"http://localhost:8080/feed.xml",
		"http://127.0.0.1/feed",
		"http://192.168.1.10/rss",
	} {
		if _, err := v.ValidateAndNormalize(u); err != nil {
			t.Errorf("permissive validator rejected %q: %v", u, err)
		}
	}
}

func TestValidateAndNormalize_MaxLength(t *testing.T) {
	v := NewFeedURLValidator()
	long := "https://example.org/" + strings.Repeat("a", v.MaxLength)
	if _, err := v.ValidateAndNormalize(long); err == nil {
		t.Error("expected error for oversized URL")
	}
}
