package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calcrag/calcrag/db"
	"github.com/calcrag/calcrag/internal/config"
	"github.com/calcrag/calcrag/internal/ingest"
	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/mastery"
	"github.com/calcrag/calcrag/internal/model"
	"github.com/calcrag/calcrag/internal/observability"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/retrieval"
	"github.com/calcrag/calcrag/internal/route"
	"github.com/calcrag/calcrag/internal/topic"
	"github.com/calcrag/calcrag/internal/tutor"
)

// Setup initializes the application. Call Close on the returned App to
// release resources; on error Setup has already cleaned up after itself.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing attaches to Genkit's TracerProvider, so it must run
	// before genkit.Init.
	shutdown, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.traceShutdown = shutdown

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	store, err := knowledge.New(knowledge.NewQueries(pool), embedder, logger.With("component", "knowledge"))
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}
	a.Knowledge = store

	if err := provideCatalog(a); err != nil {
		return nil, err
	}
	if err := provideRouting(a, g); err != nil {
		return nil, err
	}
	if err := provideRetrieval(a); err != nil {
		return nil, err
	}

	masteryStore, err := mastery.New(mastery.NewQueries(pool), a.Registry, logger.With("component", "mastery"))
	if err != nil {
		return nil, fmt.Errorf("creating mastery store: %w", err)
	}
	a.Mastery = masteryStore

	pipeline, err := tutor.NewPipeline(a.Router, a.Retriever, a.Detector, masteryStore,
		tutor.Config{SourceCount: cfg.SourceCount}, logger.With("component", "tutor"))
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	a.Pipeline = pipeline

	indexer, err := provideIndexer(a)
	if err != nil {
		return nil, err
	}
	a.Indexer = indexer

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured provider.
// Ollama has no model auto-discovery, so the three tier models and the
// embedder are registered explicitly.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		for _, name := range []string{cfg.SimpleModel, cfg.ModerateModel, cfg.ComplexModel} {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{Name: name, Type: "chat"}, nil)
		}
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit", "provider", cfg.Provider, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit", "provider", cfg.Provider)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit", "provider", cfg.Provider)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Each provider keys embedders differently.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName(config.ProviderOpenAI, cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideCatalog builds the topic registry, prerequisite graph and gap
// detector from the built-in calculus catalog.
func provideCatalog(a *App) error {
	registry, err := topic.NewRegistry(topic.Catalog())
	if err != nil {
		return fmt.Errorf("building topic registry: %w", err)
	}
	graph, err := prereq.NewGraph(registry)
	if err != nil {
		return fmt.Errorf("building prerequisite graph: %w", err)
	}
	detector, err := prereq.NewDetector(registry, graph)
	if err != nil {
		return fmt.Errorf("building gap detector: %w", err)
	}
	a.Registry = registry
	a.Graph = graph
	a.Detector = detector
	return nil
}

// provideRouting builds the classifier, the tier model table and the
// escalating router.
func provideRouting(a *App, g *genkit.Genkit) error {
	cfg := a.Config

	ccfg := route.DefaultClassifierConfig()
	ccfg.SimpleThreshold = cfg.SimpleThreshold
	ccfg.ComplexThreshold = cfg.ComplexThreshold
	classifier, err := route.NewClassifier(ccfg)
	if err != nil {
		return fmt.Errorf("creating classifier: %w", err)
	}

	table, err := model.TierTable(g, model.TierModels{
		Simple:   cfg.QualifiedModel(cfg.SimpleModel),
		Moderate: cfg.QualifiedModel(cfg.ModerateModel),
		Complex:  cfg.QualifiedModel(cfg.ComplexModel),
	}, tutor.SystemPrompt)
	if err != nil {
		return fmt.Errorf("building tier models: %w", err)
	}

	router, err := route.NewRouter(classifier, table, route.RouterConfig{
		AttemptTimeout: time.Duration(cfg.AttemptTimeoutMS) * time.Millisecond,
	}, a.Logger.With("component", "router"))
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}
	a.Router = router
	return nil
}

// provideRetrieval stacks the prerequisite-aware retriever on the base
// hybrid retriever.
func provideRetrieval(a *App) error {
	rcfg := retrieval.DefaultConfig()
	rcfg.TopK = a.Config.SourceCount

	base, err := retrieval.New(a.Knowledge, rcfg, a.Logger.With("component", "retrieval"))
	if err != nil {
		return fmt.Errorf("creating retriever: %w", err)
	}

	pr, err := retrieval.NewPrereqRetriever(base, a.Registry, a.Detector, a.Graph,
		retrieval.DefaultPrereqConfig(), a.Logger.With("component", "retrieval"))
	if err != nil {
		return fmt.Errorf("creating prerequisite retriever: %w", err)
	}
	a.Retriever = pr
	return nil
}

// provideIndexer builds the ingestion pipeline over the knowledge store.
func provideIndexer(a *App) (*ingest.Indexer, error) {
	chunker, err := ingest.NewChunker(a.Config.ChunkSize, a.Config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}
	indexer, err := ingest.NewIndexer(a.Knowledge, &ingest.Loader{}, chunker, nil,
		a.Logger.With("component", "ingest"))
	if err != nil {
		return nil, fmt.Errorf("creating indexer: %w", err)
	}
	return indexer, nil
}
