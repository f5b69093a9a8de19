// Package knowledge stores embedded knowledge-base chunks in PostgreSQL
// with pgvector and serves similarity and keyword search over them.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/calcrag/calcrag/internal/log"
)

// Store manages chunks with vector search. Embeddings are generated on
// write and on query through the configured embedder.
//
// Store is safe for concurrent use.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. A nil logger discards output.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) (*Store, error) {
	if querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{queries: querier, embedder: embedder, logger: logger}, nil
}

// Add embeds and upserts one chunk.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if chunk.Content == "" {
		return fmt.Errorf("chunk %q: content is empty", chunk.ID)
	}

	embedding, err := s.embed(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
	}

	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for chunk %q: %w", chunk.ID, err)
	}

	err = s.queries.UpsertChunk(ctx, UpsertChunkParams{
		ID:         chunk.ID,
		Content:    chunk.Content,
		DocumentID: chunk.DocumentID,
		ChunkIndex: chunk.ChunkIndex,
		Metadata:   metadataJSON,
		Embedding:  embedding,
		CreatedAt:  chunk.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("upserting chunk %q: %w", chunk.ID, err)
	}

	s.logger.Debug("added chunk",
		"id", chunk.ID,
		"document_id", chunk.DocumentID,
		"content_length", len(chunk.Content))
	return nil
}

// AddBatch embeds and upserts chunks one at a time, stopping at the first
// failure. Returns how many chunks were written.
func (s *Store) AddBatch(ctx context.Context, chunks []Chunk) (int, error) {
	for i, chunk := range chunks {
		if err := s.Add(ctx, chunk); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

// Search returns the chunks most similar to the query, ordered by cosine
// similarity descending.
//
//	results, err := store.Search(ctx, "chain rule",
//	    knowledge.WithTopK(8),
//	    knowledge.WithFilter(knowledge.MetaTopic, "derivatives.chain_rule"))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	filterJSON, err := marshalFilter(cfg.filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.queries.SearchChunks(queryCtx, embedding, filterJSON, cfg.topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search timeout: %w", err)
		}
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	return s.rowsToResults(rows), nil
}

// SearchText performs keyword search over chunk content using the
// full-text index. Scores are ts_rank values, not similarities.
func (s *Store) SearchText(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	filterJSON, err := marshalFilter(cfg.filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.queries.SearchChunksText(queryCtx, query, filterJSON, cfg.topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return s.rowsToResults(rows), nil
}

// Count returns the number of chunks whose metadata contains the filter.
// A nil or empty filter counts everything.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	filterJSON, err := marshalFilter(filter)
	if err != nil {
		return 0, err
	}

	count, err := s.queries.CountChunks(ctx, filterJSON)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	if count > math.MaxInt {
		return 0, fmt.Errorf("chunk count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Delete removes one chunk by ID.
func (s *Store) Delete(ctx context.Context, chunkID string) error {
	if err := s.queries.DeleteChunk(ctx, chunkID); err != nil {
		return fmt.Errorf("deleting chunk %q: %w", chunkID, err)
	}
	s.logger.Debug("deleted chunk", "id", chunkID)
	return nil
}

// DeleteDocument removes every chunk belonging to a document and reports
// how many were removed. Used when a source file is re-ingested.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	n, err := s.queries.DeleteDocumentChunks(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for document %q: %w", documentID, err)
	}
	s.logger.Debug("deleted document chunks", "document_id", documentID, "count", n)
	return int(n), nil
}

// ListByTopic returns up to limit chunks tagged with the topic, in
// document order. No embeddings are computed.
func (s *Store) ListByTopic(ctx context.Context, topicID string, limit int) ([]Chunk, error) {
	const maxListLimit = 1000
	if limit <= 0 || limit > maxListLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", maxListLimit, limit)
	}
	if topicID == "" {
		return nil, fmt.Errorf("topicID is required")
	}

	rows, err := s.queries.ListChunksByTopic(ctx, topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chunks for topic %q: %w", topicID, err)
	}

	chunks := make([]Chunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, s.rowToChunk(row))
	}
	return chunks, nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("embedder returned no vector")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

func marshalFilter(filter map[string]string) ([]byte, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshaling filter: %w", err)
	}
	return b, nil
}

func (s *Store) rowsToResults(rows []ChunkRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Chunk: s.rowToChunk(row),
			Score: float32(row.Score),
		})
	}
	return results
}

func (s *Store) rowToChunk(row ChunkRow) Chunk {
	var metadata map[string]string
	if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
		s.logger.Warn("unparseable chunk metadata", "chunk_id", row.ID, "error", err)
		metadata = make(map[string]string)
	}
	return Chunk{
		ID:         row.ID,
		Content:    row.Content,
		DocumentID: row.DocumentID,
		ChunkIndex: row.ChunkIndex,
		Metadata:   metadata,
		CreatedAt:  row.CreatedAt,
	}
}
