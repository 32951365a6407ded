package usecase

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"newsbrief/internal/config"
	"newsbrief/internal/domain"
	"newsbrief/internal/evidence"
)

var wordExpr = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Validator re-derives every structural check on generated briefs and
// annotates items with the defects it finds. It repairs nothing.
type Validator struct {
	minWords int
	maxWords int
	logger   *slog.Logger
}

// NewValidator wires the word-count bounds.
func NewValidator(cfg config.BriefConfig, logger *slog.Logger) *Validator {
	return &Validator{minWords: cfg.MinWords, maxWords: cfg.MaxWords, logger: logger}
}

// Validate checks each relevant item independently. Findings append to the
// item's issue list; no finding stops processing of the other items.
func (v *Validator) Validate(items []domain.ArticleItem) []domain.ArticleItem {
	for i := range items {
		item := &items[i]
		if !item.Relevant {
			continue
		}

		before := len(item.QAIssues)
		switch {
		case item.Fulltext == "":
			item.AddIssue("precheck:missing_fulltext")
		case item.Brief == nil:
			item.AddIssue("precheck:missing_brief")
		default:
			v.checkBrief(item)
		}

		if found := len(item.QAIssues) - before; found > 0 {
			v.warn("brief flagged", "url", item.URL, "findings", found)
		}
	}
	return items
}

func (v *Validator) warn(msg string, args ...interface{}) {
	if v.logger != nil {
		v.logger.Warn(msg, args...)
	}
}

func (v *Validator) checkBrief(item *domain.ArticleItem) {
	brief := item.Brief
	body := strings.TrimSpace(brief.Body)

	expectedTail := citationLine(brief.Source.URL, brief.Source.Date)
	hasTail := strings.HasSuffix(body, expectedTail)
	if !hasTail {
		item.AddIssue("precheck:missing_or_wrong_source_line")
	}

	mainBody := body
	if hasTail {
		mainBody = strings.TrimRight(body[:len(body)-len(expectedTail)], " \t\n\r")
	}

	if wc := wordCount(mainBody); wc < v.minWords || wc > v.maxWords {
		item.AddIssue(fmt.Sprintf("precheck:word_count_out_of_range:%d", wc))
	}

	quotes := brief.SupportQuotes
	if len(quotes) < evidence.MinQuotes || len(quotes) > evidence.MaxQuotes {
		item.AddIssue("precheck:support_quotes_count_invalid")
	}

	for i, q := range quotes {
		q = strings.TrimSpace(q)
		if q == "" {
			item.AddIssue(fmt.Sprintf("precheck:empty_quote:%d", i))
			continue
		}
		if !strings.Contains(item.Fulltext, q) {
			item.AddIssue(fmt.Sprintf("precheck:quote_not_in_source:%d", i))
		}
	}
}

// wordCount tokenizes on Unicode letter/digit runs.
func wordCount(text string) int {
	return len(wordExpr.FindAllString(text, -1))
}
