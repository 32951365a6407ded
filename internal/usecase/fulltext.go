package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"unicode/utf8"

	"newsbrief/internal/domain"
	"newsbrief/internal/ports"
)

// minFulltextChars marks articles too short to summarize safely.
const minFulltextChars = 800

// FulltextStage retrieves article fulltext for relevant items.
type FulltextStage struct {
	fetcher ports.FulltextFetcher
	logger  *slog.Logger
}

// NewFulltextStage wires the fetcher.
func NewFulltextStage(fetcher ports.FulltextFetcher, logger *slog.Logger) *FulltextStage {
	return &FulltextStage{fetcher: fetcher, logger: logger}
}

// Run fetches fulltext for each relevant item. Fetch failures tag the item
// and leave it with empty text; short text gets an advisory tag. Nothing here
// drops an item.
func (s *FulltextStage) Run(ctx context.Context, items []domain.ArticleItem) []domain.ArticleItem {
	for i := range items {
		item := &items[i]
		if !item.Relevant {
			continue
		}

		text, err := s.fetcher.Fetch(ctx, item.URL)
		if err != nil {
			s.warn("fulltext fetch failed", "url", item.URL, "error", err)
			item.AddIssue("fulltext_fetch_failed:" + fetchErrKind(err))
		} else {
			item.Fulltext = text
		}

		if utf8.RuneCountInString(item.Fulltext) < minFulltextChars {
			item.AddIssue("fulltext_too_short")
		}
	}
	return items
}

func fetchErrKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "http"
		}
		return "error"
	}
}

func (s *FulltextStage) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
