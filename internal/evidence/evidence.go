// Package evidence selects verbatim support quotes from article fulltext.
// The selection is deterministic and generator-independent: generated briefs
// are grounded on sentences that provably exist in the source text.
package evidence

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinQuotes is the smallest grounding set a brief may be generated from.
	MinQuotes = 3
	// MaxQuotes caps the grounding set size.
	MaxQuotes = 5

	minSentenceLen = 40
	maxSentenceLen = 320
)

var (
	sentenceBoundary = regexp.MustCompile(`(?s)[.!?]\s+`)
	innerWhitespace  = regexp.MustCompile(`\s+`)
	hasDigit         = regexp.MustCompile(`\d`)
	terminalPunct    = regexp.MustCompile(`[.!?]$`)
)

// SplitSentences extracts well-formed candidate sentences from text. A chunk
// qualifies only when it has no embedded line breaks, its collapsed form is
// 40–320 characters, it does not open with a bullet marker or a quotation
// mark, and it ends with terminal punctuation.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	for _, raw := range splitAfterBoundaries(text) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if strings.ContainsAny(raw, "\n\r") {
			continue
		}

		s := innerWhitespace.ReplaceAllString(raw, " ")
		s = strings.TrimSpace(s)

		if n := utf8.RuneCountInString(s); n < minSentenceLen || n > maxSentenceLen {
			continue
		}
		if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "• ") || strings.HasPrefix(s, "* ") {
			continue
		}
		if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "“") || strings.HasPrefix(s, "”") {
			continue
		}
		if !terminalPunct.MatchString(s) {
			continue
		}

		sentences = append(sentences, s)
	}

	return sentences
}

// SelectQuotes picks between min and max support quotes from fulltext.
// Sentences carrying at least one digit win first, in original order; the
// rest backfill until min is reached. A result shorter than min means the
// text cannot ground a brief and the caller must stop generation.
func SelectQuotes(fulltext string, min, max int) []string {
	sentences := SplitSentences(fulltext)
	if len(sentences) == 0 {
		return nil
	}

	var picked []string
	for _, s := range sentences {
		if len(picked) >= max {
			break
		}
		if hasDigit.MatchString(s) {
			picked = append(picked, s)
		}
	}

	if len(picked) < min {
		for _, s := range sentences {
			if contains(picked, s) {
				continue
			}
			picked = append(picked, s)
			if len(picked) >= min {
				break
			}
		}
	}

	if len(picked) > max {
		picked = picked[:max]
	}
	return picked
}

// splitAfterBoundaries splits on whitespace that follows terminal
// punctuation, keeping the punctuation with the preceding chunk.
func splitAfterBoundaries(text string) []string {
	var parts []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation rune, which belongs to the chunk.
		parts = append(parts, text[start:loc[0]+1])
		start = loc[1]
	}
	parts = append(parts, text[start:])
	return parts
}

func contains(list []string, candidate string) bool {
	for _, s := range list {
		if s == candidate {
			return true
		}
	}
	return false
}
