// Package tutor orchestrates a question end to end: prerequisite gap
// analysis, prerequisite-aware retrieval, prompt assembly and routed
// generation.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/retrieval"
	"github.com/calcrag/calcrag/internal/route"
)

const defaultSourceCount = 5

// Retriever fetches passages with prerequisite awareness.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (*retrieval.PrereqResult, error)
}

// MasterySource supplies a learner's mastered topic set. The mastery
// store satisfies it; a nil source means no learner state.
type MasterySource interface {
	Mastered(ctx context.Context, learnerID uuid.UUID) (map[string]bool, error)
}

// Source is one passage that backed an answer.
type Source struct {
	ChunkID      string
	TopicID      string
	SourceFile   string
	Score        float32
	Prerequisite bool
}

// Response is a complete tutored answer.
type Response struct {
	Answer string

	// Classified is the complexity the question scored; Tier is the tier
	// that actually answered, after any escalation.
	Classified route.Tier
	Tier       route.Tier
	Model      string
	Escalated  bool

	Sources []Source

	// Gaps is the prerequisite analysis for the learner, never nil.
	// GapNotice is its learner-facing summary, empty when nothing is
	// missing.
	Gaps      *prereq.Report
	GapNotice string
}

// Config controls pipeline behavior.
type Config struct {
	// SourceCount is how many passages to retrieve per question.
	// Default 5.
	SourceCount int
}

// Pipeline answers calculus questions with retrieval-augmented, gap-aware
// generation.
type Pipeline struct {
	router    *route.Router
	retriever Retriever
	detector  *prereq.Detector
	mastery   MasterySource
	cfg       Config
	logger    log.Logger
}

// NewPipeline wires the pipeline. The mastery source may be nil for
// anonymous usage; every other dependency is required.
func NewPipeline(router *route.Router, retriever Retriever, detector *prereq.Detector, mastery MasterySource, cfg Config, logger log.Logger) (*Pipeline, error) {
	if router == nil {
		return nil, errors.New("tutor: router is required")
	}
	if retriever == nil {
		return nil, errors.New("tutor: retriever is required")
	}
	if detector == nil {
		return nil, errors.New("tutor: detector is required")
	}
	if cfg.SourceCount <= 0 {
		cfg.SourceCount = defaultSourceCount
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		router:    router,
		retriever: retriever,
		detector:  detector,
		mastery:   mastery,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Ask answers one question for one learner. A zero learner ID skips the
// mastered-topics lookup and treats every prerequisite as unmet.
func (p *Pipeline) Ask(ctx context.Context, learnerID uuid.UUID, question string) (*Response, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("tutor: question is empty")
	}

	mastered, err := p.masteredSet(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	report, err := p.detector.Analyze(question, mastered)
	if err != nil {
		return nil, fmt.Errorf("analyze question: %w", err)
	}

	retrieved, err := p.retriever.Retrieve(ctx, question, p.cfg.SourceCount)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := buildPrompt(question, retrieved.Results, report)
	result, err := p.router.Generate(ctx, question, prompt)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Answer:     result.Answer,
		Classified: result.Classified,
		Tier:       result.Served,
		Model:      result.Model,
		Escalated:  result.Escalated(),
		Sources:    toSources(retrieved.Results),
		Gaps:       report,
	}
	if report.HasGaps() {
		resp.GapNotice = prereq.FormatGapNotice(report)
	}

	p.logger.Info("answered question",
		"learner_id", learnerID,
		"classified", result.Classified.String(),
		"served", result.Served.String(),
		"model", result.Model,
		"sources", len(resp.Sources),
		"gaps", len(report.Missing))
	return resp, nil
}

func (p *Pipeline) masteredSet(ctx context.Context, learnerID uuid.UUID) (map[string]bool, error) {
	if p.mastery == nil || learnerID == uuid.Nil {
		return map[string]bool{}, nil
	}
	mastered, err := p.mastery.Mastered(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load mastered topics: %w", err)
	}
	return mastered, nil
}

func toSources(results []knowledge.Result) []Source {
	sources := make([]Source, 0, len(results))
	for _, res := range results {
		sources = append(sources, Source{
			ChunkID:      res.Chunk.ID,
			TopicID:      res.Chunk.Metadata[knowledge.MetaTopic],
			SourceFile:   res.Chunk.Metadata[knowledge.MetaSourceFile],
			Score:        res.Score,
			Prerequisite: res.Chunk.Metadata[retrieval.MetaIsPrerequisite] == "true",
		})
	}
	return sources
}
