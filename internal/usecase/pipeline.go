package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"newsbrief/internal/domain"
)

// Pipeline runs the fixed five-stage sequence over one batch of items:
// ingest, classify, fetch fulltext, generate, QA. Every stage consumes and
// returns the whole batch; per-item skip and tag policy lives inside the
// stages. There are no conditional edges and no retries between stages.
type Pipeline struct {
	ingestor   *Ingestor
	classifier *Classifier
	fulltext   *FulltextStage
	generator  *BriefGenerator
	validator  *Validator
	logger     *slog.Logger
}

// PipelineDeps wires all stages into the orchestrator.
type PipelineDeps struct {
	Ingestor   *Ingestor
	Classifier *Classifier
	Fulltext   *FulltextStage
	Generator  *BriefGenerator
	Validator  *Validator
	Logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		ingestor:   deps.Ingestor,
		classifier: deps.Classifier,
		fulltext:   deps.Fulltext,
		generator:  deps.Generator,
		validator:  deps.Validator,
		logger:     deps.Logger,
	}
}

// Run executes one batch over the configured feeds and returns the terminal
// items. Only infrastructure failures (storage, batch-level generator
// failures) abort the run; everything item-scoped survives as issue tags.
func (p *Pipeline) Run(ctx context.Context, feedURLs []string) ([]domain.ArticleItem, error) {
	if err := p.ingestor.IngestFeeds(ctx, feedURLs); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	items, err := p.classifier.ClassifyFeeds(ctx, feedURLs)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	items = p.fulltext.Run(ctx, items)
	items = p.generator.Run(ctx, items)
	items = p.validator.Validate(items)

	if p.logger != nil {
		relevant := 0
		generated := 0
		for _, item := range items {
			if item.Relevant {
				relevant++
			}
			if item.Brief != nil {
				generated++
			}
		}
		p.logger.Info("pipeline done", "items", len(items), "relevant", relevant, "generated", generated)
	}

	return items, nil
}
