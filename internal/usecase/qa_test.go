package usecase

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"newsbrief/internal/domain"
)

func validatedItem(body string, quotes []string) domain.ArticleItem {
	return domain.ArticleItem{
		URL:      "https://ex.com/a",
		Relevant: true,
		Fulltext: groundedFulltext,
		Brief: &domain.Brief{
			Title:         "t",
			Body:          body,
			Source:        domain.SourceInfo{Name: "Example Wire", URL: "https://ex.com/a", Date: "2024-05-01"},
			SupportQuotes: quotes,
		},
	}
}

func groundedQuotes() []string {
	return []string{
		"Revenue grew by 12 percent during the second quarter according to the report.",
		"The company hired 300 additional engineers across its three European offices.",
		"Operating margin reached 21 percent, the highest level in five years of operations.",
	}
}

func TestValidatePassesCleanBrief(t *testing.T) {
	t.Parallel()

	body := wordsOfLen(140) + "\nSource: https://ex.com/a - 2024-05-01."
	v := NewValidator(briefConfig(), nil)

	items := v.Validate([]domain.ArticleItem{validatedItem(body, groundedQuotes())})
	if len(items[0].QAIssues) != 0 {
		t.Fatalf("clean brief flagged: %v", items[0].QAIssues)
	}
}

func TestValidateWordCountExcludesCitationLine(t *testing.T) {
	t.Parallel()

	// 140 words plus the citation line; the citation words must not count.
	body := wordsOfLen(140) + "\nSource: https://ex.com/a - 2024-05-01."
	short := wordsOfLen(12) + "\nSource: https://ex.com/a - 2024-05-01."

	v := NewValidator(briefConfig(), nil)
	items := v.Validate([]domain.ArticleItem{
		validatedItem(body, groundedQuotes()),
		validatedItem(short, groundedQuotes()),
	})

	if len(items[0].QAIssues) != 0 {
		t.Fatalf("in-range body flagged: %v", items[0].QAIssues)
	}
	if !hasIssue(items[1], "precheck:word_count_out_of_range:12") {
		t.Fatalf("short body not flagged with literal count: %v", items[1].QAIssues)
	}
}

func TestValidateMissingSourceLine(t *testing.T) {
	t.Parallel()

	body := wordsOfLen(140)
	v := NewValidator(briefConfig(), nil)

	items := v.Validate([]domain.ArticleItem{validatedItem(body, groundedQuotes())})
	if !hasIssue(items[0], "precheck:missing_or_wrong_source_line") {
		t.Fatalf("missing citation not flagged: %v", items[0].QAIssues)
	}
	// Without a tail the whole body is counted, which is still 140 words.
	if hasIssue(items[0], "precheck:word_count_out_of_range:140") {
		t.Fatalf("word count should still pass: %v", items[0].QAIssues)
	}
}

func TestValidateQuoteChecks(t *testing.T) {
	t.Parallel()

	body := wordsOfLen(140) + "\nSource: https://ex.com/a - 2024-05-01."
	quotes := []string{
		"Revenue grew by 12 percent during the second quarter according to the report.",
		"   ",
		"This sentence appears nowhere in the article fulltext at all.",
	}

	v := NewValidator(briefConfig(), nil)
	items := v.Validate([]domain.ArticleItem{validatedItem(body, quotes)})

	if !hasIssue(items[0], "precheck:empty_quote:1") {
		t.Fatalf("empty quote not flagged: %v", items[0].QAIssues)
	}
	if !hasIssue(items[0], "precheck:quote_not_in_source:2") {
		t.Fatalf("foreign quote not flagged: %v", items[0].QAIssues)
	}
	if hasIssue(items[0], "precheck:quote_not_in_source:0") {
		t.Fatalf("verbatim quote wrongly flagged: %v", items[0].QAIssues)
	}
}

func TestValidateQuoteCountBounds(t *testing.T) {
	t.Parallel()

	body := wordsOfLen(140) + "\nSource: https://ex.com/a - 2024-05-01."
	two := groundedQuotes()[:2]

	v := NewValidator(briefConfig(), nil)
	items := v.Validate([]domain.ArticleItem{validatedItem(body, two)})
	if !hasIssue(items[0], "precheck:support_quotes_count_invalid") {
		t.Fatalf("quote count not flagged: %v", items[0].QAIssues)
	}
}

func TestValidateMissingArtifacts(t *testing.T) {
	t.Parallel()

	v := NewValidator(briefConfig(), nil)
	items := v.Validate([]domain.ArticleItem{
		{URL: "https://ex.com/a", Relevant: true},
		{URL: "https://ex.com/b", Relevant: true, Fulltext: groundedFulltext},
		{URL: "https://ex.com/c", Relevant: false},
	})

	if !hasIssue(items[0], "precheck:missing_fulltext") {
		t.Fatalf("missing fulltext not flagged: %v", items[0].QAIssues)
	}
	if !hasIssue(items[1], "precheck:missing_brief") {
		t.Fatalf("missing brief not flagged: %v", items[1].QAIssues)
	}
	if len(items[2].QAIssues) != 0 {
		t.Fatalf("irrelevant item must not be validated: %v", items[2].QAIssues)
	}
}

func TestValidateLogsFlaggedItems(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	v := NewValidator(briefConfig(), logger)
	v.Validate([]domain.ArticleItem{
		validatedItem(wordsOfLen(140)+"\nSource: https://ex.com/a - 2024-05-01.", groundedQuotes()),
		{URL: "https://ex.com/broken", Relevant: true},
	})

	out := buf.String()
	if !strings.Contains(out, "brief flagged") || !strings.Contains(out, "https://ex.com/broken") {
		t.Fatalf("flagged item not logged:\n%s", out)
	}
	if strings.Contains(out, "https://ex.com/a") {
		t.Fatalf("clean item must not be logged:\n%s", out)
	}
}

func TestValidateIssuesAreAdditive(t *testing.T) {
	t.Parallel()

	item := validatedItem(wordsOfLen(5), []string{"x"})
	item.QAIssues = []string{"fulltext_too_short"}

	v := NewValidator(briefConfig(), nil)
	items := v.Validate([]domain.ArticleItem{item})

	if items[0].QAIssues[0] != "fulltext_too_short" {
		t.Fatalf("pre-existing issue lost: %v", items[0].QAIssues)
	}
	if len(items[0].QAIssues) < 3 {
		t.Fatalf("expected appended findings: %v", items[0].QAIssues)
	}
	if !hasIssue(items[0], fmt.Sprintf("precheck:word_count_out_of_range:%d", 5)) {
		t.Fatalf("word count finding missing: %v", items[0].QAIssues)
	}
}
