// Package app assembles the application from its components.
//
// Setup builds the full dependency graph in order: tracing, database
// pool with migrations, Genkit with the configured provider, the
// knowledge store, the topic catalog, routing, retrieval, mastery
// tracking, and finally the tutoring pipeline and the indexer. Close
// releases everything in reverse.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calcrag/calcrag/internal/config"
	"github.com/calcrag/calcrag/internal/ingest"
	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/mastery"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/retrieval"
	"github.com/calcrag/calcrag/internal/route"
	"github.com/calcrag/calcrag/internal/topic"
	"github.com/calcrag/calcrag/internal/tutor"
)

// App is the application container. Every field is initialized by Setup;
// entry points pick the components they need.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge *knowledge.Store
	Registry  *topic.Registry
	Graph     *prereq.Graph
	Detector  *prereq.Detector

	Router    *route.Router
	Retriever *retrieval.PrereqRetriever
	Mastery   *mastery.Store
	Pipeline  *tutor.Pipeline
	Indexer   *ingest.Indexer

	traceShutdown func(context.Context) error
	cancel        context.CancelFunc
}

// Close releases all resources in reverse initialization order. Safe to
// call on a partially initialized App, which Setup does on failure.
func (a *App) Close() error {
	a.Logger.Info("shutting down")

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Debug("database pool closed")
	}

	if a.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.traceShutdown(ctx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}
