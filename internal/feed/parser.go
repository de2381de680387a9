package feed

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/driftrss/drift/internal/storage"
)

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// ParsedFeed carries the channel-level metadata alongside the items.
type ParsedFeed struct {
	Title       string
	SiteURL     string
	Description string
	Favicon     string
	Articles    []*storage.Article
}

// Parse decodes an RSS/Atom document. Article identity follows the feed's own
// item identifier (GUID, else link) scoped to the feed, so re-parsing the same
// document yields the same IDs and upserts stay idempotent. Items with neither
// GUID nor link get a random ID and will not dedup across fetches.
func (p *Parser) Parse(reader io.Reader, feedID string) (*ParsedFeed, error) {
	parsed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	out := &ParsedFeed{
		Title:       parsed.Title,
		SiteURL:     parsed.Link,
		Description: parsed.Description,
	}
	if parsed.Image != nil {
		out.Favicon = parsed.Image.URL
	}

	out.Articles = make([]*storage.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		article := &storage.Article{
			ID:          articleID(feedID, item),
			FeedID:      feedID,
			Title:       item.Title,
			Link:        item.Link,
			Author:      itemAuthor(item),
			Description: item.Description,
		}

		if item.PublishedParsed != nil {
			article.PubDate = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			article.PubDate = *item.UpdatedParsed
		}

		out.Articles = append(out.Articles, article)
	}

	return out, nil
}

func articleID(feedID string, item *gofeed.Item) string {
	if item.GUID != "" {
		return fmt.Sprintf("%s:%s", feedID, item.GUID)
	}
	if item.Link != "" {
		return fmt.Sprintf("%s:%s", feedID, item.Link)
	}
	return fmt.Sprintf("%s:%s", feedID, uuid.NewString())
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	if item.Author != nil {
		return item.Author.Name
	}
	return ""
}
