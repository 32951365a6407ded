package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"newsbrief/internal/domain"
	"newsbrief/internal/ports"
)

const (
	// maxInFlight caps concurrent generator requests during classification.
	maxInFlight = 16

	classifyContentMaxChars = 8000
	whyMaxChars             = 2048
	whyPlaceholder          = "—"
)

const relevanceSystem = "You are a careful news relevance classifier for a business-news " +
	"briefing service. Judge relevance ONLY from the supplied text. Do not guess facts. " +
	"Answer with strict JSON and nothing else."

var relevanceSchema = json.RawMessage(`{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"relevant": {"type": "boolean"},
		"confidence": {"type": "number", "minimum": 0.0, "maximum": 1.0},
		"pest": {
			"type": "array",
			"items": {"type": "string", "enum": ["Policy", "Economy", "Society", "Technology"]},
			"minItems": 0,
			"maxItems": 2
		},
		"category": {
			"type": "string",
			"enum": ["Technology", "Consumer", "Policy", "Economy", "Labor", "Energy", "Security", "Other"]
		},
		"why": {"type": "string"},
		"must_have_evidence": {
			"type": "array",
			"items": {"type": "string"},
			"minItems": 1,
			"maxItems": 3
		},
		"reject_reason": {"type": "string"}
	},
	"required": ["relevant", "confidence", "pest", "category", "why", "must_have_evidence", "reject_reason"]
}`)

type relevanceResult struct {
	Relevant         bool     `json:"relevant"`
	Confidence       float64  `json:"confidence"`
	Pest             []string `json:"pest"`
	Category         string   `json:"category"`
	Why              string   `json:"why"`
	MustHaveEvidence []string `json:"must_have_evidence"`
	RejectReason     string   `json:"reject_reason"`
}

// Classifier decides relevance for unclassified entries via the generator,
// at most maxInFlight requests in flight at once.
//
// Failure policy is fail-soft: a failed request marks only its own item and
// the remaining classifications proceed; successful verdicts are committed in
// one batch after all requests resolve.
type Classifier struct {
	repo     ports.EntryRepository
	gen      ports.Generator
	audience string
	logger   *slog.Logger
}

// NewClassifier wires the repository and generator; audience describes the
// readership relevance is judged against.
func NewClassifier(repo ports.EntryRepository, gen ports.Generator, audience string, logger *slog.Logger) *Classifier {
	return &Classifier{repo: repo, gen: gen, audience: audience, logger: logger}
}

// ClassifyFeeds classifies every not-yet-classified entry of the feeds and
// returns one pipeline item per entry classified in this run. Entries that
// already carry a verdict are never re-requested.
func (c *Classifier) ClassifyFeeds(ctx context.Context, feedURLs []string) ([]domain.ArticleItem, error) {
	var missing []string
	for _, feedURL := range feedURLs {
		ids, err := c.repo.UnclassifiedEntryIDs(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("list unclassified for %s: %w", feedURL, err)
		}
		missing = append(missing, ids...)
	}

	entries, err := c.repo.EntriesByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	type outcome struct {
		result relevanceResult
		err    error
	}
	outcomes := make([]outcome, len(entries))

	var group errgroup.Group
	group.SetLimit(maxInFlight)
	for i, entry := range entries {
		group.Go(func() error {
			result, err := c.classifyOne(ctx, entry)
			outcomes[i] = outcome{result: result, err: err}
			return nil
		})
	}
	_ = group.Wait()

	verdicts := make([]domain.RelevanceVerdict, 0, len(entries))
	items := make([]domain.ArticleItem, 0, len(entries))
	for i, entry := range entries {
		item := domain.ArticleItem{
			URL:       entry.Link,
			Title:     entry.Title,
			Feed:      feedLabel(entry),
			Published: entry.PublishedAt.Format(time.RFC3339),
		}

		if out := outcomes[i]; out.err != nil {
			c.warn("classification failed", "entry", entry.EntryID, "error", out.err)
			item.AddIssue("relevance_failed:" + classifyErrKind(out.err))
		} else {
			why := strings.TrimSpace(out.result.Why)
			why = clipRunes(why, whyMaxChars)
			if why == "" {
				why = whyPlaceholder
			}

			item.Relevant = out.result.Relevant
			item.RelevanceWhy = why
			verdicts = append(verdicts, domain.RelevanceVerdict{
				EntryRowID: entry.ID,
				Relevant:   out.result.Relevant,
				Why:        why,
			})
		}

		items = append(items, item)
	}

	if err := c.repo.SaveVerdicts(ctx, verdicts); err != nil {
		return nil, fmt.Errorf("save verdicts: %w", err)
	}

	c.debug("classification done", "entries", len(entries), "persisted", len(verdicts))
	return items, nil
}

func (c *Classifier) classifyOne(ctx context.Context, entry domain.FeedEntry) (relevanceResult, error) {
	prompt := buildRelevancePrompt(entry, c.audience)

	raw, err := c.gen.Complete(ctx, ports.CompletionRequest{
		System:     relevanceSystem,
		User:       prompt,
		SchemaName: "news_relevance",
		Schema:     relevanceSchema,
	})
	if err != nil {
		return relevanceResult{}, err
	}

	var result relevanceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return relevanceResult{}, &ports.SchemaError{Raw: raw, Cause: err}
	}
	return result, nil
}

func buildRelevancePrompt(entry domain.FeedEntry, audience string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: decide whether the article is relevant for %s.\n\n", audience)
	b.WriteString("Relevant when at least one applies:\n")
	b.WriteString("- PEST: policy/regulation\n")
	b.WriteString("- PEST: economy/markets/investments\n")
	b.WriteString("- PEST: social trends/consumer behavior\n")
	b.WriteString("- PEST: technology (AI, cyber, platforms, industrial/energy tech, telecom, biotech)\n")
	b.WriteString("- clear B2B implication (industry/value chain)\n\n")
	b.WriteString("Not relevant when:\n")
	b.WriteString("- sports/entertainment without a trend, policy, or market angle\n")
	b.WriteString("- local and isolated events without a broader implication\n")
	b.WriteString("- rumors or clickbait unsupported by the text\n\n")
	fmt.Fprintf(&b, "Metadata:\n- Title: %s\n- Author: %s\n- Published: %s\n- URL: %s\n\n",
		entry.Title, entry.Author, entry.PublishedAt.Format("2006-01-02"), entry.Link)
	fmt.Fprintf(&b, "Article text:\n\"\"\"%s\"\"\"", clipRunes(entry.ContentText, classifyContentMaxChars))
	return b.String()
}

func feedLabel(entry domain.FeedEntry) string {
	if entry.FeedTitle != "" {
		return entry.FeedTitle
	}
	return entry.FeedURL
}

func classifyErrKind(err error) string {
	var schemaErr *ports.SchemaError
	if errors.As(err, &schemaErr) {
		return "schema_violation"
	}
	return "request_error"
}

func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func (c *Classifier) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Classifier) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
