// Package retrieval turns learner questions into ranked passages from the
// knowledge base. The base Retriever fuses vector and keyword search; the
// PrereqRetriever on top of it pulls in foundational passages for the
// prerequisite topics of whatever the question is about.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/log"
)

const (
	defaultTopK           = 5
	defaultMinScore       = 0.45
	defaultSemanticWeight = 0.7

	// rrfK dampens the rank contribution in reciprocal rank fusion.
	// 60 is the value from the original RRF paper and works well here.
	rrfK = 60
)

// Searcher is the subset of the knowledge store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
	SearchText(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Config controls how the base retriever searches and ranks.
type Config struct {
	// TopK is the maximum number of results returned. Default 5.
	TopK int
	// MinScore drops vector matches below this cosine similarity before
	// fusion, keeping barely-related passages out of prompts. Zero
	// disables the floor; DefaultConfig uses 0.45.
	MinScore float32
	// SemanticWeight splits fusion weight between vector and keyword
	// rankings. 1 means vector only. Default 0.7.
	SemanticWeight float64
	// Hybrid enables keyword search alongside vector search. Keyword
	// matching carries exact terms like "L'Hôpital" or "u-substitution"
	// that embeddings tend to blur. Default true.
	Hybrid bool
}

// DefaultConfig returns the retrieval defaults.
func DefaultConfig() Config {
	return Config{
		TopK:           defaultTopK,
		MinScore:       defaultMinScore,
		SemanticWeight: defaultSemanticWeight,
		Hybrid:         true,
	}
}

// Retriever performs hybrid search over the knowledge base.
type Retriever struct {
	store  Searcher
	cfg    Config
	logger log.Logger
}

// New creates a retriever over the given store. A zero TopK and an
// out-of-range SemanticWeight fall back to defaults.
func New(store Searcher, cfg Config, logger log.Logger) (*Retriever, error) {
	if store == nil {
		return nil, errors.New("retrieval: store is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.SemanticWeight <= 0 || cfg.SemanticWeight > 1 {
		cfg.SemanticWeight = defaultSemanticWeight
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{store: store, cfg: cfg, logger: logger}, nil
}

// Retrieve returns the most relevant passages for the query, at most topK
// of them. topK <= 0 uses the configured default. The filter restricts
// results by chunk metadata and may be nil.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filter map[string]string) ([]knowledge.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("retrieval: query is empty")
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	// Over-fetch so the min-score filter and fusion still leave topK.
	opts := searchOptions(topK*2, filter)

	semantic, err := r.store.Search(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	semantic = r.aboveMinScore(semantic)

	if !r.cfg.Hybrid {
		return truncate(semantic, topK), nil
	}

	keyword, err := r.store.SearchText(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	fused := fuse(semantic, keyword, r.cfg.SemanticWeight)
	r.logger.Debug("hybrid retrieval",
		"query_len", len(query),
		"semantic", len(semantic),
		"keyword", len(keyword),
		"fused", len(fused))
	return truncate(fused, topK), nil
}

// ByTopic retrieves passages restricted to a single topic.
func (r *Retriever) ByTopic(ctx context.Context, query, topicID string, topK int) ([]knowledge.Result, error) {
	return r.Retrieve(ctx, query, topK, map[string]string{knowledge.MetaTopic: topicID})
}

func (r *Retriever) aboveMinScore(results []knowledge.Result) []knowledge.Result {
	if r.cfg.MinScore <= 0 {
		return results
	}
	kept := results[:0]
	for _, res := range results {
		if res.Score >= r.cfg.MinScore {
			kept = append(kept, res)
		}
	}
	return kept
}

func searchOptions(topK int, filter map[string]string) []knowledge.SearchOption {
	opts := []knowledge.SearchOption{knowledge.WithTopK(topK)}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, knowledge.WithFilter(k, filter[k]))
	}
	return opts
}

// fuse combines two rankings with weighted reciprocal rank fusion. Vector
// similarities and ts_rank values live on different scales, so fusion works
// on ranks only. A chunk found by both methods accumulates both
// contributions and rises accordingly.
func fuse(semantic, keyword []knowledge.Result, semanticWeight float64) []knowledge.Result {
	type entry struct {
		result knowledge.Result
		score  float64
	}
	merged := make(map[string]*entry)

	add := func(results []knowledge.Result, weight float64) {
		for rank, res := range results {
			contribution := weight / float64(rrfK+rank+1)
			if e, ok := merged[res.Chunk.ID]; ok {
				e.score += contribution
				continue
			}
			merged[res.Chunk.ID] = &entry{result: res, score: contribution}
		}
	}
	add(semantic, semanticWeight)
	add(keyword, 1-semanticWeight)

	fused := make([]knowledge.Result, 0, len(merged))
	for _, e := range merged {
		e.result.Score = float32(e.score)
		fused = append(fused, e.result)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Chunk.ID < fused[j].Chunk.ID
	})
	return fused
}

func truncate(results []knowledge.Result, topK int) []knowledge.Result {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}
