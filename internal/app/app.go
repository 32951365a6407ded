package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"newsbrief/internal/config"
	"newsbrief/internal/infrastructure/artifact"
	"newsbrief/internal/infrastructure/feed"
	"newsbrief/internal/infrastructure/fulltext"
	"newsbrief/internal/infrastructure/llm"
	"newsbrief/internal/infrastructure/storage"
	"newsbrief/internal/logging"
	"newsbrief/internal/usecase"
)

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	repo     *storage.PostgresRepository
	pipeline *usecase.Pipeline
	sink     *artifact.Writer
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := storage.NewPostgresRepository(db)
	source := feed.NewSource(nil, logging.Component(baseLogger, "feed"))
	generator := llm.NewClient(cfg.LLM)
	fetcher := fulltext.NewFetcher(nil)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Ingestor:   usecase.NewIngestor(source, repo, logging.Component(baseLogger, "ingest")),
		Classifier: usecase.NewClassifier(repo, generator, cfg.Brief.Audience, logging.Component(baseLogger, "classify")),
		Fulltext:   usecase.NewFulltextStage(fetcher, logging.Component(baseLogger, "fulltext")),
		Generator:  usecase.NewBriefGenerator(generator, cfg.Brief, logging.Component(baseLogger, "generate")),
		Validator:  usecase.NewValidator(cfg.Brief, logging.Component(baseLogger, "qa")),
		Logger:     logging.Component(baseLogger, "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		repo:     repo,
		pipeline: pipeline,
		sink:     artifact.NewWriter(cfg.Output.Dir),
	}, nil
}

// Run executes one full batch over the configured feeds and writes artifact
// files for every item that produced a brief.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	if err := a.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	items, err := a.pipeline.Run(ctx, a.cfg.Feeds)
	if err != nil {
		return err
	}

	written := 0
	for _, item := range items {
		if item.Brief == nil {
			continue
		}
		if err := a.sink.Write(ctx, item); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		written++
	}

	a.logger.Info("run finished", "items", len(items), "artifacts", written, "dir", a.cfg.Output.Dir)
	return nil
}
