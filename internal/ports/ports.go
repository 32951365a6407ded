package ports

import (
	"context"
	"encoding/json"
	"fmt"

	"newsbrief/internal/domain"
)

// EntrySource pulls and normalizes entries for a single feed URL.
type EntrySource interface {
	FetchEntries(ctx context.Context, feedURL string) (domain.Feed, []domain.FeedEntry, error)
}

// EntryRepository persists feeds, entries, and relevance verdicts.
type EntryRepository interface {
	EnsureSchema(ctx context.Context) error

	// SaveFeedEntries gets-or-creates the feed row and upserts all entries
	// inside a single transaction.
	SaveFeedEntries(ctx context.Context, feed domain.Feed, entries []domain.FeedEntry) error

	// UnclassifiedEntryIDs lists entry identifiers with no verdict for the
	// feed, ordered by publish time ascending.
	UnclassifiedEntryIDs(ctx context.Context, feedURL string) ([]string, error)

	// EntriesByIDs loads full entries for the identifiers, ordered by publish
	// time ascending, with feed url/title joined in.
	EntriesByIDs(ctx context.Context, entryIDs []string) ([]domain.FeedEntry, error)

	// SaveVerdicts upserts all verdicts in one transaction, keyed by entry row.
	SaveVerdicts(ctx context.Context, verdicts []domain.RelevanceVerdict) error
}

// CompletionRequest describes one structured-output request to the generator.
type CompletionRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     json.RawMessage
}

// Generator is the external text-generation capability. Complete returns the
// raw structured payload; decoding into the request schema is the caller's
// concern, and decode failures are reported as *SchemaError.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error)
}

// FulltextFetcher retrieves readable article text for a URL.
type FulltextFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// ArtifactSink emits processed items for downstream consumers.
type ArtifactSink interface {
	Write(ctx context.Context, item domain.ArticleItem) error
}

// SchemaError reports generator output that does not conform to the requested
// schema. Raw keeps the offending payload for triage.
type SchemaError struct {
	Raw   []byte
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("generator output violates schema: %v", e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}
