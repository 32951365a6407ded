package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"newsbrief/internal/domain"
	"newsbrief/internal/ports"
)

// fakeGenerator answers Complete with a caller-supplied function.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(req ports.CompletionRequest) (json.RawMessage, error)
}

func (g *fakeGenerator) Complete(_ context.Context, req ports.CompletionRequest) (json.RawMessage, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.fn(req)
}

// fakeSource returns canned entries per feed URL.
type fakeSource struct {
	feeds   map[string]domain.Feed
	entries map[string][]domain.FeedEntry
	errs    map[string]error
}

func (s *fakeSource) FetchEntries(_ context.Context, feedURL string) (domain.Feed, []domain.FeedEntry, error) {
	if err := s.errs[feedURL]; err != nil {
		return domain.Feed{}, nil, err
	}
	return s.feeds[feedURL], s.entries[feedURL], nil
}

// fakeFetcher returns canned fulltext per page URL.
type fakeFetcher struct {
	texts map[string]string
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (string, error) {
	if err := f.errs[pageURL]; err != nil {
		return "", err
	}
	return f.texts[pageURL], nil
}

// fakeRepo is an in-memory EntryRepository mirroring the store contract:
// upsert on (feed, entry id) refreshes content but keeps row identity and
// verdicts; unclassified queries order by publish time.
type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	feeds    map[string]domain.Feed
	entries  []domain.FeedEntry
	verdicts map[int64]domain.RelevanceVerdict

	saveEntriesErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:   1,
		feeds:    map[string]domain.Feed{},
		verdicts: map[int64]domain.RelevanceVerdict{},
	}
}

func (r *fakeRepo) EnsureSchema(context.Context) error { return nil }

func (r *fakeRepo) SaveFeedEntries(_ context.Context, feed domain.Feed, entries []domain.FeedEntry) error {
	if r.saveEntriesErr != nil {
		return r.saveEntriesErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.feeds[feed.URL]
	if !ok {
		feed.ID = r.nextID
		r.nextID++
		r.feeds[feed.URL] = feed
		stored = feed
	}

	for _, entry := range entries {
		entry.FeedID = stored.ID
		entry.FeedURL = stored.URL
		entry.FeedTitle = stored.Title

		replaced := false
		for i := range r.entries {
			if r.entries[i].FeedID == stored.ID && r.entries[i].EntryID == entry.EntryID {
				entry.ID = r.entries[i].ID
				r.entries[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			entry.ID = r.nextID
			r.nextID++
			r.entries = append(r.entries, entry)
		}
	}
	return nil
}

func (r *fakeRepo) UnclassifiedEntryIDs(_ context.Context, feedURL string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	feed, ok := r.feeds[feedURL]
	if !ok {
		return nil, nil
	}

	var unclassified []domain.FeedEntry
	for _, e := range r.entries {
		if e.FeedID != feed.ID {
			continue
		}
		if _, done := r.verdicts[e.ID]; done {
			continue
		}
		unclassified = append(unclassified, e)
	}
	sort.Slice(unclassified, func(i, j int) bool {
		return unclassified[i].PublishedAt.Before(unclassified[j].PublishedAt)
	})

	ids := make([]string, 0, len(unclassified))
	for _, e := range unclassified {
		ids = append(ids, e.EntryID)
	}
	return ids, nil
}

func (r *fakeRepo) EntriesByIDs(_ context.Context, entryIDs []string) ([]domain.FeedEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := map[string]struct{}{}
	for _, id := range entryIDs {
		wanted[id] = struct{}{}
	}

	var out []domain.FeedEntry
	for _, e := range r.entries {
		if _, ok := wanted[e.EntryID]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.Before(out[j].PublishedAt)
	})
	return out, nil
}

func (r *fakeRepo) SaveVerdicts(_ context.Context, verdicts []domain.RelevanceVerdict) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range verdicts {
		r.verdicts[v.EntryRowID] = v
	}
	return nil
}

func (r *fakeRepo) entryByEntryID(entryID string) (domain.FeedEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.EntryID == entryID {
			return e, true
		}
	}
	return domain.FeedEntry{}, false
}

func relevanceJSON(relevant bool, why string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"relevant":           relevant,
		"confidence":         0.9,
		"pest":               []string{"Economy"},
		"category":           "Economy",
		"why":                why,
		"must_have_evidence": []string{"quarterly report"},
		"reject_reason":      "",
	})
	return raw
}

func briefJSON(body string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"title":   "Generated title",
		"excerpt": "Generated excerpt",
		"body":    body,
		"tags":    []string{"economy"},
		"source": map[string]string{
			"name": "model-invented publisher",
			"url":  "https://model-invented.example",
			"date": "1999-01-01",
		},
		"support_quotes": []string{"model-invented quote"},
	})
	return raw
}

func hasIssue(item domain.ArticleItem, tag string) bool {
	for _, issue := range item.QAIssues {
		if issue == tag {
			return true
		}
	}
	return false
}

func wordsOfLen(n int) string {
	out := make([]byte, 0, n*5)
	for i := 0; i < n; i++ {
		out = append(out, []byte(fmt.Sprintf("word%d ", i))...)
	}
	return string(out[:len(out)-1])
}
