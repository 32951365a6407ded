package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"newsbrief/internal/config"
	"newsbrief/internal/domain"
	"newsbrief/internal/evidence"
	"newsbrief/internal/ports"
)

const (
	generateFulltextMaxChars = 12000

	unknownSource = "Unknown source"
	unknownDate   = "unknown date"
)

var plainDateExpr = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

var briefSchema = json.RawMessage(`{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"title": {"type": "string"},
		"excerpt": {"type": "string"},
		"body": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"source": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"name": {"type": "string"},
				"url": {"type": "string"},
				"date": {"type": "string"}
			},
			"required": ["name", "url", "date"]
		},
		"support_quotes": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["title", "excerpt", "body", "tags", "source", "support_quotes"]
}`)

// BriefGenerator writes a brief for each relevant item with usable fulltext.
// Source attribution and support quotes in the result are always the
// deterministically computed values; generator output for those fields is
// discarded.
type BriefGenerator struct {
	gen    ports.Generator
	cfg    config.BriefConfig
	logger *slog.Logger
}

// NewBriefGenerator wires the generator and brief constraints.
func NewBriefGenerator(gen ports.Generator, cfg config.BriefConfig, logger *slog.Logger) *BriefGenerator {
	return &BriefGenerator{gen: gen, cfg: cfg, logger: logger}
}

// Run generates briefs. Items that are not relevant, lack fulltext, or yield
// too few support quotes pass through untouched apart from their issue tags.
func (g *BriefGenerator) Run(ctx context.Context, items []domain.ArticleItem) []domain.ArticleItem {
	for i := range items {
		item := &items[i]
		if !item.Relevant {
			continue
		}

		if item.Fulltext == "" {
			item.AddIssue("missing_fulltext")
			continue
		}

		quotes := evidence.SelectQuotes(item.Fulltext, evidence.MinQuotes, evidence.MaxQuotes)
		if len(quotes) < evidence.MinQuotes {
			item.AddIssue("support_quotes_too_few")
			continue
		}

		if err := g.generateOne(ctx, item, quotes); err != nil {
			g.warn("brief generation failed", "url", item.URL, "error", err)
			item.AddIssue("brief_generation_failed:" + classifyErrKind(err))
		}
	}
	return items
}

func (g *BriefGenerator) generateOne(ctx context.Context, item *domain.ArticleItem, quotes []string) error {
	publisher := item.Feed
	if publisher == "" {
		publisher = unknownSource
	}
	date := plainDate(item.Published)
	tail := citationLine(item.URL, date)

	prompt, err := g.buildPrompt(item, publisher, date, quotes)
	if err != nil {
		return err
	}

	raw, err := g.gen.Complete(ctx, ports.CompletionRequest{
		User:       prompt,
		SchemaName: "news_brief",
		Schema:     briefSchema,
	})
	if err != nil {
		return err
	}

	var brief domain.Brief
	if err := json.Unmarshal(raw, &brief); err != nil {
		return &ports.SchemaError{Raw: raw, Cause: err}
	}

	// Never trust the model for attribution or evidence.
	brief.Source = domain.SourceInfo{Name: publisher, URL: item.URL, Date: date}
	brief.SupportQuotes = quotes

	body := strings.TrimSpace(brief.Body)
	switch {
	case body == "":
		body = tail
	case !strings.HasSuffix(body, tail):
		body = body + "\n" + tail
	}
	brief.Body = body

	item.Brief = &brief
	return nil
}

func (g *BriefGenerator) buildPrompt(item *domain.ArticleItem, publisher, date string, quotes []string) (string, error) {
	quotesJSON, err := json.Marshal(quotes)
	if err != nil {
		return "", fmt.Errorf("marshal quotes: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are an editor for a business-news briefing service.\n\n")
	fmt.Fprintf(&b, "Write a neutral news brief based ONLY on the provided source text.\n\n")
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Output language: %s (title, excerpt, and body)\n", g.cfg.Language)
	fmt.Fprintf(&b, "- body length: %d-%d words\n", g.cfg.MinWords, g.cfg.MaxWords)
	b.WriteString("- Start with what happened (concrete, no preamble)\n")
	b.WriteString("- Include 1-2 key figures or concrete facts if present in the source text\n")
	b.WriteString("- No opinions, no analysis; keep a neutral tone\n")
	b.WriteString("- Hallucination guard: you MUST use the provided support quotes below.\n")
	b.WriteString("  * Do not modify them. Do not add or remove quotes.\n")
	b.WriteString("  * Every claim in the brief must be supported by these quotes (no invented facts).\n\n")
	b.WriteString("Return STRICT JSON according to the schema: title, excerpt, body, tags, source, support_quotes.\n")
	fmt.Fprintf(&b, "Set source to: name=%q, url=%q, date=%q\n\n", publisher, item.URL, date)
	fmt.Fprintf(&b, "Support quotes you MUST use (JSON array of strings):\n%s\n\n", quotesJSON)
	fmt.Fprintf(&b, "Source text (fulltext):\n%s", clipRunes(item.Fulltext, generateFulltextMaxChars))
	return b.String(), nil
}

// plainDate extracts the first YYYY-MM-DD token from a published value.
func plainDate(published string) string {
	if m := plainDateExpr.FindString(published); m != "" {
		return m
	}
	return unknownDate
}

// citationLine is the deterministic closing line of every brief body. It is
// never authored by the generator.
func citationLine(url, date string) string {
	return fmt.Sprintf("Source: %s - %s.", url, date)
}

func (g *BriefGenerator) warn(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
