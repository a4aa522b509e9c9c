package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/llm"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/persistence"
	"github.com/spec-kit/support-assistant/internal/prompt"
	"github.com/spec-kit/support-assistant/internal/repository"
	"github.com/spec-kit/support-assistant/internal/service"
	"github.com/spec-kit/support-assistant/internal/worker"
)

// Components holds the process-wide collaborators shared by the binaries.
type Components struct {
	Store         repository.TicketStore
	Redis         *persistence.Redis
	Pipeline      *service.MessagePipeline
	TicketService *service.TicketService
	Metrics       *observability.Metrics
	Dispatcher    events.Dispatcher

	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	// Completer replaces the OpenAI client.
	Completer llm.Completer
}

// Build opens the configured store, the optional lookup cache, the prompt
// catalog and the completion client, and assembles the message pipeline.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Components, error) {
	c := &Components{Metrics: observability.NewMetrics()}

	store, err := openStore(ctx, cfg.Store, logger, c)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Redis = persistence.NewRedis(cfg.Redis, logger)
	if c.Redis != nil {
		c.closers = append(c.closers, c.Redis.Close)
	}
	c.Store = repository.NewCachedTicketStore(store, c.Redis.ClientHandle(), cfg.Redis.CacheTTL(), logger.Named("cache"))

	catalog, err := prompt.LoadDir(cfg.Prompts.Dir)
	if err != nil {
		c.Close()
		return nil, err
	}
	classifyPrompt, err := catalog.Get(cfg.Prompts.ClassifyTemplate)
	if err != nil {
		c.Close()
		return nil, err
	}
	responsePrompt, err := catalog.Get(cfg.Prompts.ResponseTemplate)
	if err != nil {
		c.Close()
		return nil, err
	}

	completer := opts.Completer
	if completer == nil {
		if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
			logger.Warn("OPENAI_API_KEY not set; completion calls will fail and replies will use fallbacks")
		}
		completer = llm.NewOpenAIClient(cfg.LLM.APIKey,
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithTimeout(cfg.LLM.Timeout()))
	}

	c.Dispatcher = events.NewInMemoryDispatcher(logger.Named("events"))
	worker.StartNotificationWorker(c.Dispatcher, logger, cfg.Notification)

	c.Pipeline = service.NewMessagePipeline(service.PipelineDependencies{
		Classifier: service.NewIntentClassifier(service.ClassifierDependencies{
			Completer:        completer,
			Prompt:           classifyPrompt,
			Model:            cfg.LLM.ClassifierModel,
			Temperature:      cfg.LLM.ClassifierTemperature,
			StructuredOutput: cfg.LLM.StructuredOutput,
			Logger:           logger.Named("classifier"),
			Metrics:          c.Metrics,
		}),
		Resolver: service.NewTicketResolver(service.ResolverDependencies{
			Store:      c.Store,
			Dispatcher: c.Dispatcher,
			Logger:     logger.Named("resolver"),
			Metrics:    c.Metrics,
			IDAttempts: cfg.Pipeline.TicketIDAttempts,
		}),
		Composer: service.NewResponseComposer(service.ComposerDependencies{
			Completer:   completer,
			Prompt:      responsePrompt,
			Model:       cfg.LLM.ResponderModel,
			Temperature: cfg.LLM.ResponderTemperature,
			Logger:      logger.Named("composer"),
			Metrics:     c.Metrics,
		}),
		Logger:  logger.Named("pipeline"),
		Metrics: c.Metrics,
	})
	c.TicketService = service.NewTicketService(c.Store)
	return c, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger, c *Components) (repository.TicketStore, error) {
	switch cfg.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, pg.Close)
		if cfg.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return repository.NewPostgresTicketStore(pg.PoolHandle()), nil
	case config.StoreDriverSQLite, config.StoreDriverMySQL:
		db, err := persistence.OpenGorm(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		c.closers = append(c.closers, func() { persistence.CloseGorm(db) })
		if cfg.RunMigrations {
			if err := persistence.AutoMigrate(db, logger, repository.GormModels()...); err != nil {
				return nil, fmt.Errorf("migrate %s store: %w", cfg.Driver, err)
			}
		}
		return repository.NewGormTicketStore(db), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}
