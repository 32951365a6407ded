package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newsbrief/internal/domain"
	"newsbrief/internal/ports"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

// Source fetches syndicated entries with gofeed and normalizes them into
// domain.FeedEntry values ready for persistence.
type Source struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.EntrySource = (*Source)(nil)

// NewSource wires an HTTP client; a 20s-timeout client is used when nil.
func NewSource(client *http.Client, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Source{client: client, logger: logger}
}

// FetchEntries downloads and parses one feed. Entries without a link, without
// extractable content, or without a publish time are discarded; entries
// resolving to the same canonical link are deduplicated within the batch.
func (s *Source) FetchEntries(ctx context.Context, feedURL string) (domain.Feed, []domain.FeedEntry, error) {
	parser := gofeed.NewParser()
	parser.Client = s.client

	parsed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return domain.Feed{}, nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	feed := domain.Feed{URL: feedURL, Title: strings.TrimSpace(parsed.Title)}

	seen := map[string]struct{}{}
	entries := make([]domain.FeedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || item.Link == "" {
			continue
		}

		key := CanonicalURL(item.Link)
		if _, ok := seen[key]; ok {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			s.debug("skip entry without publish time", "feed", feedURL, "link", item.Link)
			continue
		}

		content := extractContentHTML(item)
		if content == "" {
			s.debug("skip entry without content", "feed", feedURL, "link", item.Link)
			continue
		}

		var author string
		if item.Author != nil {
			author = item.Author.Name
		}

		seen[key] = struct{}{}
		entries = append(entries, domain.FeedEntry{
			EntryID:     EntryIDFromLink(item.Link),
			Title:       strings.TrimSpace(item.Title),
			Author:      author,
			Link:        item.Link,
			PublishedAt: published.UTC(),
			ContentText: HTMLToText(content),
		})
	}

	return feed, entries, nil
}

// EntryIDFromLink derives the stable entry identifier: a sha256 of the raw
// link truncated to 32 hex characters. The raw link is hashed on purpose;
// canonicalization is applied only for in-batch dedup.
func EntryIDFromLink(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])[:32]
}

// extractContentHTML picks the richest content field available: structured
// content blocks first, then encoded-content extensions, then the summary or
// description. First non-empty wins.
func extractContentHTML(item *gofeed.Item) string {
	if strings.TrimSpace(item.Content) != "" {
		return item.Content
	}

	for _, ns := range []string{"content", "dc"} {
		if exts, ok := item.Extensions[ns]; ok {
			for _, name := range []string{"encoded", "content"} {
				for _, e := range exts[name] {
					if strings.TrimSpace(e.Value) != "" {
						return e.Value
					}
				}
			}
		}
	}

	if strings.TrimSpace(item.Description) != "" {
		return item.Description
	}

	return ""
}

// HTMLToText strips markup and collapses all whitespace runs into single
// spaces, the same normalization applied to fetched article fulltext.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CollapseWhitespace(html)
	}

	doc.Find("script, style").Remove()
	return CollapseWhitespace(doc.Text())
}

// CollapseWhitespace rewrites every whitespace run as a single space.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(text, " "))
}

func (s *Source) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
