// Package api exposes the tutor over a JSON HTTP API.
//
// Endpoints:
//
//	GET  /health                            liveness probe
//	GET  /ready                             readiness probe (database ping)
//	POST /api/v1/ask                        answer a question
//	GET  /api/v1/topics                     list the topic catalog
//	GET  /api/v1/topics/{id}                one topic with its prerequisites
//	GET  /api/v1/topics/{id}/gaps           unmastered prerequisites of a topic
//	GET  /api/v1/topics/{id}/path           learning path to a topic
//	GET  /api/v1/learners/{id}/mastered     list mastered topics
//	PUT  /api/v1/learners/{id}/mastered     mark topics mastered
//	DELETE /api/v1/learners/{id}/mastered/{topic}  unmark one topic
//	DELETE /api/v1/learners/{id}/mastered   reset a learner
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/mastery"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/topic"
	"github.com/calcrag/calcrag/internal/tutor"
)

// Asker answers questions. Satisfied by *tutor.Pipeline.
type Asker interface {
	Ask(ctx context.Context, learnerID uuid.UUID, question string) (*tutor.Response, error)
}

// MasteryStore tracks which topics a learner has mastered. Satisfied by
// *mastery.Store.
type MasteryStore interface {
	Mark(ctx context.Context, learnerID uuid.UUID, topicIDs ...string) error
	Unmark(ctx context.Context, learnerID uuid.UUID, topicID string) error
	Mastered(ctx context.Context, learnerID uuid.UUID) (map[string]bool, error)
	List(ctx context.Context, learnerID uuid.UUID) ([]mastery.Record, error)
	Reset(ctx context.Context, learnerID uuid.UUID) (int, error)
}

// Pinger reports database health for the readiness probe. Satisfied by
// *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig carries the server's dependencies.
type ServerConfig struct {
	Logger   log.Logger
	Pipeline Asker           // required
	Registry *topic.Registry // required
	Graph    *prereq.Graph   // required
	Mastery  MasteryStore    // optional: nil disables learner endpoints
	DB       Pinger          // optional: nil skips the db check in /ready

	TrustProxy bool
	RateBurst  int // per-IP burst, 0 means default 60
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires all routes and middleware.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Registry == nil || cfg.Graph == nil {
		return nil, errors.New("topic registry and graph are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ah := &askHandler{pipeline: cfg.Pipeline, logger: logger}
	th := &topicHandler{
		registry: cfg.Registry,
		graph:    cfg.Graph,
		mastery:  cfg.Mastery,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/ask", ah.ask)
	mux.HandleFunc("GET /api/v1/topics", th.list)
	mux.HandleFunc("GET /api/v1/topics/{id}", th.get)
	mux.HandleFunc("GET /api/v1/topics/{id}/gaps", th.gaps)
	mux.HandleFunc("GET /api/v1/topics/{id}/path", th.path)

	if cfg.Mastery != nil {
		lh := &learnerHandler{store: cfg.Mastery, registry: cfg.Registry, logger: logger}
		mux.HandleFunc("GET /api/v1/learners/{id}/mastered", lh.list)
		mux.HandleFunc("PUT /api/v1/learners/{id}/mastered", lh.mark)
		mux.HandleFunc("DELETE /api/v1/learners/{id}/mastered", lh.reset)
		mux.HandleFunc("DELETE /api/v1/learners/{id}/mastered/{topic}", lh.unmark)
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery -> Logging -> RateLimit -> Routes
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack so rate limiting can
	// never fail a liveness check.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", healthHandler(logger))
	topMux.Handle("GET /ready", readyHandler(cfg.DB, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
