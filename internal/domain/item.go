package domain

// SourceInfo is the structured attribution block of a brief. Its values are
// always computed by the pipeline, never taken from generator output.
type SourceInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Date string `json:"date"`
}

// Brief is a generated news brief. Body ends with the deterministic citation
// line, and SupportQuotes are verbatim sentences from the article fulltext.
type Brief struct {
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	Body          string     `json:"body"`
	Tags          []string   `json:"tags"`
	Source        SourceInfo `json:"source"`
	SupportQuotes []string   `json:"support_quotes"`
}

// ArticleItem is the in-pipeline unit of work. Each stage may annotate it;
// QAIssues only ever grows within one run.
type ArticleItem struct {
	URL       string
	Title     string
	Feed      string
	Published string

	Relevant     bool
	RelevanceWhy string

	Fulltext string
	Brief    *Brief

	QAIssues []string
}

// AddIssue appends a QA issue tag. Tags are additive; nothing removes them.
func (it *ArticleItem) AddIssue(tag string) {
	it.QAIssues = append(it.QAIssues, tag)
}
