package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"newsbrief/internal/domain"
	"newsbrief/internal/ports"
)

// PostgresRepository persists feeds, entries, and relevance verdicts.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.EntryRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the tables when they are absent.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS feeds (
			id BIGSERIAL PRIMARY KEY,
			url VARCHAR(2048) NOT NULL UNIQUE,
			title VARCHAR(512) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS feed_entries (
			id BIGSERIAL PRIMARY KEY,
			feed_id BIGINT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			entry_id VARCHAR(64) NOT NULL,
			link VARCHAR(2048) NOT NULL,
			title VARCHAR(512) NOT NULL,
			author VARCHAR(256) NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL,
			content_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_feed_entries_feed_id_entry_id UNIQUE (feed_id, entry_id),
			CONSTRAINT uq_feed_entries_feed_id_link UNIQUE (feed_id, link)
		)`,
		`CREATE INDEX IF NOT EXISTS ix_feed_entries_feed_id_published_at
			ON feed_entries (feed_id, published_at)`,
		`CREATE TABLE IF NOT EXISTS relevance (
			id BIGSERIAL PRIMARY KEY,
			entry_row_id BIGINT NOT NULL UNIQUE REFERENCES feed_entries(id) ON DELETE CASCADE,
			relevant BOOLEAN NOT NULL,
			why VARCHAR(2048) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveFeedEntries gets-or-creates the feed row and upserts every entry on
// (feed_id, entry_id) in one transaction. On conflict the entry's
// link/title/author/published/content are refreshed; row identity and any
// existing verdict stay untouched.
func (r *PostgresRepository) SaveFeedEntries(ctx context.Context, feed domain.Feed, entries []domain.FeedEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	feedID, err := r.getOrCreateFeed(ctx, tx, feed)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		query, args, err := r.sb.Insert("feed_entries").
			Columns("feed_id", "entry_id", "link", "title", "author", "published_at", "content_text").
			Values(feedID, entry.EntryID, entry.Link, entry.Title, entry.Author, entry.PublishedAt, entry.ContentText).
			Suffix(`ON CONFLICT (feed_id, entry_id) DO UPDATE
				SET link = EXCLUDED.link,
				    title = EXCLUDED.title,
				    author = EXCLUDED.author,
				    published_at = EXCLUDED.published_at,
				    content_text = EXCLUDED.content_text`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build entry upsert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert entry %s: %w", entry.EntryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit feed %s: %w", feed.URL, err)
	}
	return nil
}

func (r *PostgresRepository) getOrCreateFeed(ctx context.Context, tx *sql.Tx, feed domain.Feed) (int64, error) {
	query, args, err := r.sb.Insert("feeds").
		Columns("url", "title").
		Values(feed.URL, feed.Title).
		Suffix(`ON CONFLICT (url) DO UPDATE SET title = EXCLUDED.title RETURNING id`).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build feed upsert: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("get or create feed %s: %w", feed.URL, err)
	}
	return id, nil
}

// UnclassifiedEntryIDs returns entry identifiers without a verdict for the
// feed, ordered by publish time ascending.
func (r *PostgresRepository) UnclassifiedEntryIDs(ctx context.Context, feedURL string) ([]string, error) {
	query, args, err := r.sb.Select("fe.entry_id").
		From("feed_entries fe").
		Join("feeds f ON f.id = fe.feed_id").
		LeftJoin("relevance rv ON rv.entry_row_id = fe.id").
		Where(sq.Eq{"f.url": feedURL}).
		Where("rv.id IS NULL").
		OrderBy("fe.published_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unclassified query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unclassified: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entry id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

// EntriesByIDs loads full entries for the identifiers, ordered by publish
// time ascending, with the owning feed's url and title joined in.
func (r *PostgresRepository) EntriesByIDs(ctx context.Context, entryIDs []string) ([]domain.FeedEntry, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}

	query, args, err := r.sb.Select(
		"fe.id", "fe.feed_id", "fe.entry_id", "fe.link", "fe.title",
		"fe.author", "fe.published_at", "fe.content_text", "f.url", "f.title").
		From("feed_entries fe").
		Join("feeds f ON f.id = fe.feed_id").
		Where("fe.entry_id = ANY(?)", pq.StringArray(entryIDs)).
		OrderBy("fe.published_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entries query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.FeedEntry
	for rows.Next() {
		var e domain.FeedEntry
		if err := rows.Scan(&e.ID, &e.FeedID, &e.EntryID, &e.Link, &e.Title,
			&e.Author, &e.PublishedAt, &e.ContentText, &e.FeedURL, &e.FeedTitle); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}

// SaveVerdicts upserts all verdicts in one transaction. Re-running the
// classifier never rewrites a decided entry because decided entries are not
// selected again; the upsert keeps the write idempotent regardless.
func (r *PostgresRepository) SaveVerdicts(ctx context.Context, verdicts []domain.RelevanceVerdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, v := range verdicts {
		query, args, err := r.sb.Insert("relevance").
			Columns("entry_row_id", "relevant", "why").
			Values(v.EntryRowID, v.Relevant, v.Why).
			Suffix(`ON CONFLICT (entry_row_id) DO UPDATE
				SET relevant = EXCLUDED.relevant,
				    why = EXCLUDED.why`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build verdict upsert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert verdict for entry %d: %w", v.EntryRowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit verdicts: %w", err)
	}
	return nil
}
