package feed

import (
	"strings"
	"testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Test RSS Feed</title>
		<link>http://example.com</link>
		<description>Test Description</description>
		<item>
			<title>First Article</title>
			<link>http://example.com/article1</link>
			<description>This is the first article</description>
			<guid>article-1</guid>
			<pubDate>Wed, 01 Jan 2025 12:00:00 GMT</pubDate>
		</item>
		<item>
			<title>Second Article</title>
			<link>http://example.com/article2</link>
			<description>This is the second article</description>
			<pubDate>Thu, 02 Jan 2025 12:00:00 GMT</pubDate>
		</item>
	</channel>
</rss>`

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	parsed, err := parser.Parse(strings.NewReader(sampleRSS), "feed-1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parsed.Title != "Test RSS Feed" {
		t.Errorf("expected channel title, got %q", parsed.Title)
	}
	if parsed.SiteURL != "http://example.com" {
		t.Errorf("expected site URL, got %q", parsed.SiteURL)
	}
	if len(parsed.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(parsed.Articles))
	}

	first := parsed.Articles[0]
	if first.ID != "feed-1:article-1" {
		t.Errorf("GUID-based identity expected, got %s", first.ID)
	}
	if first.Title != "First Article" {
		t.Errorf("expected title 'First Article', got %s", first.Title)
	}
	if first.PubDate.IsZero() {
		t.Error("expected parsed publish date")
	}

	// No GUID: identity falls back to the link.
	second := parsed.Articles[1]
	if second.ID != "feed-1:http://example.com/article2" {
		t.Errorf("link-based identity expected, got %s", second.ID)
	}
}

func TestParser_Parse_StableIdentity(t *testing.T) {
	parser := NewParser()

	a, err := parser.Parse(strings.NewReader(sampleRSS), "feed-1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := parser.Parse(strings.NewReader(sampleRSS), "feed-1")
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.Articles {
		if a.Articles[i].ID != b.Articles[i].ID {
			t.Errorf("article identity must be stable across parses: %s vs %s",
				a.Articles[i].ID, b.Articles[i].ID)
		}
	}
}

func TestParser_Parse_Invalid(t *testing.T) {
	parser := NewParser()

	if _, err := parser.Parse(strings.NewReader("not xml at all"), "feed-1"); err == nil {
		t.Error("expected error for invalid document")
	}
}

func TestParser_Parse_ScopesIDsToFeed(t *testing.T) {
	parser := NewParser()

	a, _ := parser.Parse(strings.NewReader(sampleRSS), "feed-a")
	b, _ := parser.Parse(strings.NewReader(sampleRSS), "feed-b")

	if a.Articles[0].ID == b.Articles[0].ID {
		t.Error("same item in different feeds must not collide")
	}
}
