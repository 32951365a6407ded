package domain

import "time"

// Feed is a syndicated source registered by URL; rows are created on first
// ingestion and never mutated afterwards.
type Feed struct {
	ID    int64
	URL   string
	Title string
}

// FeedEntry is one syndicated item after content extraction. EntryID is a
// stable hash of the raw link and, together with the feed, identifies the row.
type FeedEntry struct {
	ID      int64
	FeedID  int64
	EntryID string

	Title       string
	Author      string
	Link        string
	PublishedAt time.Time
	ContentText string

	// Populated by joined reads, not by ingestion.
	FeedURL   string
	FeedTitle string
}

// RelevanceVerdict records the classifier's decision for one entry.
// An entry without a verdict is unclassified and eligible for classification.
type RelevanceVerdict struct {
	EntryRowID int64
	Relevant   bool
	Why        string
}
