package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"newsbrief/internal/domain"
	"newsbrief/internal/ports"
)

// Writer emits one JSON file per processed item. Filenames derive from a
// stable hash of the item URL, so re-running overwrites instead of piling up.
type Writer struct {
	dir string
}

var _ ports.ArtifactSink = (*Writer)(nil)

// NewWriter targets a directory, creating it on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

type briefPayload struct {
	Title         string            `json:"title"`
	Excerpt       string            `json:"excerpt"`
	Body          string            `json:"body"`
	Tags          []string          `json:"tags"`
	Source        domain.SourceInfo `json:"source"`
	SupportQuotes []string          `json:"support_quotes"`
}

type itemPayload struct {
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Published    string        `json:"published"`
	Relevant     bool          `json:"relevant"`
	RelevanceWhy string        `json:"relevance_why"`
	QAIssues     []string      `json:"qa_issues"`
	Brief        *briefPayload `json:"brief"`
}

// Write persists the item snapshot as <dir>/<sha256(url)>.json.
func (w *Writer) Write(ctx context.Context, item domain.ArticleItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	payload := itemPayload{
		URL:          item.URL,
		Title:        item.Title,
		Published:    item.Published,
		Relevant:     item.Relevant,
		RelevanceWhy: item.RelevanceWhy,
		QAIssues:     item.QAIssues,
	}
	if item.Brief != nil {
		payload.Brief = &briefPayload{
			Title:         item.Brief.Title,
			Excerpt:       item.Brief.Excerpt,
			Body:          item.Brief.Body,
			Tags:          item.Brief.Tags,
			Source:        item.Brief.Source,
			SupportQuotes: item.Brief.SupportQuotes,
		}
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal item %s: %w", item.URL, err)
	}

	path := filepath.Join(w.dir, FileName(item.URL))
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FileName returns the stable artifact filename for an item URL.
func FileName(itemURL string) string {
	sum := sha256.Sum256([]byte(itemURL))
	return hex.EncodeToString(sum[:]) + ".json"
}
