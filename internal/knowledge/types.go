package knowledge

import "time"

// Metadata keys stored with every chunk. Values are strings; difficulty
// is stored as its decimal representation.
const (
	MetaTopic      = "topic"
	MetaDifficulty = "difficulty"
	MetaSourceFile = "source_file"
	MetaSourceType = "source_type"
)

// Source type values for MetaSourceType.
const (
	SourceTypeMarkdown = "markdown"
	SourceTypePDF      = "pdf"
	SourceTypeText     = "text"
)

// Chunk is one embedded passage of a knowledge-base document.
type Chunk struct {
	ID         string
	Content    string
	DocumentID string
	ChunkIndex int
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Result is a chunk returned from search with its relevance score.
// For vector search the score is cosine similarity in [0, 1]; for keyword
// search it is a ts_rank value, comparable only within one result set.
type Result struct {
	Chunk Chunk
	Score float32
}

// SearchOption configures search behavior.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

const (
	defaultTopK          = 5
	defaultSearchTimeout = 10 * time.Second
)

// WithTopK sets the maximum number of results. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter restricts results to chunks whose metadata contains the
// key-value pair. Multiple filters combine with AND.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the per-search timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.timeout = d
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    defaultTopK,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.topK <= 0 {
		cfg.topK = defaultTopK
	}
	return cfg
}
