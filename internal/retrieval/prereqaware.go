package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/topic"
)

// Metadata keys stamped onto passages pulled in for prerequisite context.
const (
	MetaIsPrerequisite  = "is_prerequisite"
	MetaPrerequisiteFor = "prerequisite_for"
)

const (
	defaultPrereqDepth   = 2
	defaultPerPrereqTopK = 2
	defaultPrereqWeight  = 0.7
)

// PrereqConfig controls prerequisite augmentation.
type PrereqConfig struct {
	// MaxDepth bounds the prerequisite traversal. 1 includes direct
	// prerequisites only, 2 also their prerequisites. Default 2.
	MaxDepth int
	// PerTopicTopK is how many passages to pull per prerequisite topic.
	// Default 2.
	PerTopicTopK int
	// Weight scales prerequisite passage scores so foundational context
	// ranks below direct matches. Default 0.7.
	Weight float32
}

// DefaultPrereqConfig returns the augmentation defaults.
func DefaultPrereqConfig() PrereqConfig {
	return PrereqConfig{
		MaxDepth:     defaultPrereqDepth,
		PerTopicTopK: defaultPerPrereqTopK,
		Weight:       defaultPrereqWeight,
	}
}

// PrereqResult is the outcome of a prerequisite-aware retrieval.
type PrereqResult struct {
	// Results holds main and prerequisite passages merged, deduplicated
	// and sorted by score. Prerequisite passages carry the
	// MetaIsPrerequisite metadata key.
	Results []knowledge.Result
	// DetectedTopic is the most advanced topic matched in the query, or
	// empty when nothing matched.
	DetectedTopic string
	// Prerequisites lists the prerequisite topics that were searched.
	Prerequisites []string
	// MainCount and PrereqCount break down Results by origin, counted
	// before deduplication.
	MainCount   int
	PrereqCount int
}

// PrereqRetriever augments retrieval with passages from the prerequisite
// topics of the question's subject. A learner asking about the chain rule
// gets composite-function and basic-derivative passages alongside the
// chain rule material.
type PrereqRetriever struct {
	base     *Retriever
	registry *topic.Registry
	detector *prereq.Detector
	graph    *prereq.Graph
	cfg      PrereqConfig
	// topoIndex orders topics by curriculum position, used to pick the
	// most advanced detected topic as the question's subject.
	topoIndex map[string]int
	logger    log.Logger
}

// NewPrereqRetriever wires prerequisite awareness over a base retriever.
func NewPrereqRetriever(base *Retriever, reg *topic.Registry, detector *prereq.Detector, graph *prereq.Graph, cfg PrereqConfig, logger log.Logger) (*PrereqRetriever, error) {
	if base == nil {
		return nil, errors.New("retrieval: base retriever is required")
	}
	if reg == nil || detector == nil || graph == nil {
		return nil, errors.New("retrieval: registry, detector and graph are required")
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultPrereqDepth
	}
	if cfg.PerTopicTopK <= 0 {
		cfg.PerTopicTopK = defaultPerPrereqTopK
	}
	if cfg.Weight <= 0 || cfg.Weight > 1 {
		cfg.Weight = defaultPrereqWeight
	}
	if logger == nil {
		logger = log.NewNop()
	}

	topoIndex := make(map[string]int)
	for i, id := range graph.TopologicalOrder() {
		topoIndex[id] = i
	}
	return &PrereqRetriever{
		base:      base,
		registry:  reg,
		detector:  detector,
		graph:     graph,
		cfg:       cfg,
		topoIndex: topoIndex,
		logger:    logger,
	}, nil
}

// Retrieve runs the base retrieval, detects the question's topic and folds
// in passages from its prerequisites. topK <= 0 uses the base default.
func (p *PrereqRetriever) Retrieve(ctx context.Context, query string, topK int) (*PrereqResult, error) {
	main, err := p.base.Retrieve(ctx, query, topK, nil)
	if err != nil {
		return nil, err
	}

	out := &PrereqResult{
		DetectedTopic: p.primaryTopic(p.detector.DetectTopics(query)),
		MainCount:     len(main),
	}
	if out.DetectedTopic == "" {
		out.Results = main
		return out, nil
	}

	prereqs := p.limitedPrereqs(out.DetectedTopic, p.cfg.MaxDepth)
	var extra []knowledge.Result
	for _, prereqID := range prereqs {
		info, err := p.registry.Get(prereqID)
		if err != nil {
			return nil, fmt.Errorf("prerequisite %s: %w", prereqID, err)
		}
		out.Prerequisites = append(out.Prerequisites, prereqID)

		// Prefix the topic name so the embedding leans toward that
		// topic's framing of the question.
		results, err := p.base.ByTopic(ctx, info.Name+": "+query, prereqID, p.cfg.PerTopicTopK)
		if err != nil {
			return nil, fmt.Errorf("prerequisite %s: %w", prereqID, err)
		}
		for _, res := range results {
			res.Score *= p.cfg.Weight
			res.Chunk.Metadata = cloneWith(res.Chunk.Metadata, map[string]string{
				MetaIsPrerequisite:  "true",
				MetaPrerequisiteFor: out.DetectedTopic,
			})
			extra = append(extra, res)
		}
	}
	out.PrereqCount = len(extra)
	out.Results = dedupe(append(main, extra...))

	p.logger.Debug("prerequisite-aware retrieval",
		"topic", out.DetectedTopic,
		"prerequisites", len(out.Prerequisites),
		"main", out.MainCount,
		"prereq", out.PrereqCount,
		"merged", len(out.Results))
	return out, nil
}

// RetrieveWithPath retrieves like Retrieve and also returns the learning
// path through the unmastered prerequisites of the detected topic, ending
// at the topic itself. The path is nil when no topic was detected.
func (p *PrereqRetriever) RetrieveWithPath(ctx context.Context, query string, mastered map[string]bool, topK int) (*PrereqResult, []string, error) {
	result, err := p.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, nil, err
	}
	if result.DetectedTopic == "" {
		return result, nil, nil
	}
	path, err := p.graph.LearningPath(result.DetectedTopic, mastered)
	if err != nil {
		return nil, nil, err
	}
	return result, path, nil
}

// primaryTopic picks the question's subject from the detected topics: the
// one furthest along the curriculum, so its prerequisites cover the rest.
func (p *PrereqRetriever) primaryTopic(detected []string) string {
	best := ""
	bestIdx := -1
	for _, id := range detected {
		if idx, ok := p.topoIndex[id]; ok && idx > bestIdx {
			best, bestIdx = id, idx
		}
	}
	return best
}

func (p *PrereqRetriever) limitedPrereqs(id string, depth int) []string {
	seen := make(map[string]bool)
	p.collectPrereqs(id, depth, seen)
	ids := make([]string, 0, len(seen))
	for prereqID := range seen {
		ids = append(ids, prereqID)
	}
	sort.Strings(ids)
	return ids
}

func (p *PrereqRetriever) collectPrereqs(id string, depth int, seen map[string]bool) {
	if depth <= 0 {
		return
	}
	direct, err := p.graph.Direct(id)
	if err != nil {
		return
	}
	for _, prereqID := range direct {
		if !seen[prereqID] {
			seen[prereqID] = true
			p.collectPrereqs(prereqID, depth-1, seen)
		}
	}
}

// dedupe drops repeated chunk IDs keeping the higher score, then sorts by
// score descending with ID as the tie-break.
func dedupe(results []knowledge.Result) []knowledge.Result {
	best := make(map[string]knowledge.Result)
	for _, res := range results {
		if prev, ok := best[res.Chunk.ID]; ok && prev.Score >= res.Score {
			continue
		}
		best[res.Chunk.ID] = res
	}
	unique := make([]knowledge.Result, 0, len(best))
	for _, res := range best {
		unique = append(unique, res)
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Score != unique[j].Score {
			return unique[i].Score > unique[j].Score
		}
		return unique[i].Chunk.ID < unique[j].Chunk.ID
	})
	return unique
}

func cloneWith(meta map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(meta)+len(extra))
	for k, v := range meta {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
