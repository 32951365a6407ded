package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"newsbrief/internal/ports"
)

// Ingestor pulls feed entries and persists them idempotently.
type Ingestor struct {
	source ports.EntrySource
	repo   ports.EntryRepository
	logger *slog.Logger
}

// NewIngestor wires the entry source and repository.
func NewIngestor(source ports.EntrySource, repo ports.EntryRepository, logger *slog.Logger) *Ingestor {
	return &Ingestor{source: source, repo: repo, logger: logger}
}

// IngestFeeds processes feeds sequentially. A feed whose fetch fails is
// logged and skipped so it cannot block the others; storage failures are
// infrastructure-fatal and abort the run.
func (in *Ingestor) IngestFeeds(ctx context.Context, feedURLs []string) error {
	for _, feedURL := range feedURLs {
		feed, entries, err := in.source.FetchEntries(ctx, feedURL)
		if err != nil {
			in.warn("feed fetch failed", "feed", feedURL, "error", err)
			continue
		}

		if err := in.repo.SaveFeedEntries(ctx, feed, entries); err != nil {
			return fmt.Errorf("save entries for %s: %w", feedURL, err)
		}

		in.debug("feed ingested", "feed", feedURL, "entries", len(entries))
	}
	return nil
}

func (in *Ingestor) warn(msg string, args ...interface{}) {
	if in.logger != nil {
		in.logger.Warn(msg, args...)
	}
}

func (in *Ingestor) debug(msg string, args ...interface{}) {
	if in.logger != nil {
		in.logger.Debug(msg, args...)
	}
}
