package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DB is the subset of pgxpool.Pool the queries need.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UpsertChunkParams carries one chunk row for insert-or-update.
type UpsertChunkParams struct {
	ID         string
	Content    string
	DocumentID string
	ChunkIndex int
	Metadata   []byte
	Embedding  pgvector.Vector
	CreatedAt  time.Time
}

// ChunkRow is a chunk as read from the database, with an optional score
// column populated by the search queries.
type ChunkRow struct {
	ID         string
	Content    string
	DocumentID string
	ChunkIndex int
	Metadata   []byte
	CreatedAt  time.Time
	Score      float64
}

// Querier is the database surface Store depends on. The interface lives
// with its consumer so tests can substitute a mock.
type Querier interface {
	UpsertChunk(ctx context.Context, arg UpsertChunkParams) error
	SearchChunks(ctx context.Context, embedding pgvector.Vector, filter []byte, limit int) ([]ChunkRow, error)
	SearchChunksText(ctx context.Context, query string, filter []byte, limit int) ([]ChunkRow, error)
	CountChunks(ctx context.Context, filter []byte) (int64, error)
	DeleteChunk(ctx context.Context, id string) error
	DeleteDocumentChunks(ctx context.Context, documentID string) (int64, error)
	ListChunksByTopic(ctx context.Context, topicID string, limit int) ([]ChunkRow, error)
}

// Queries implements Querier with direct parameterized SQL over pgx.
type Queries struct {
	db DB
}

// NewQueries wraps a pool (or transaction) for chunk queries.
func NewQueries(db DB) *Queries {
	return &Queries{db: db}
}

const upsertChunkSQL = `
INSERT INTO chunks (id, content, document_id, chunk_index, metadata, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    content     = EXCLUDED.content,
    document_id = EXCLUDED.document_id,
    chunk_index = EXCLUDED.chunk_index,
    metadata    = EXCLUDED.metadata,
    embedding   = EXCLUDED.embedding`

func (q *Queries) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	createdAt := arg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx, upsertChunkSQL,
		arg.ID, arg.Content, arg.DocumentID, arg.ChunkIndex, arg.Metadata, arg.Embedding, createdAt)
	return err
}

// The <=> operator is cosine distance; 1 - distance is cosine similarity.
const searchChunksSQL = `
SELECT id, content, document_id, chunk_index, metadata, created_at,
       1 - (embedding <=> $1) AS score
FROM chunks
WHERE ($2::jsonb IS NULL OR metadata @> $2)
ORDER BY embedding <=> $1
LIMIT $3`

func (q *Queries) SearchChunks(ctx context.Context, embedding pgvector.Vector, filter []byte, limit int) ([]ChunkRow, error) {
	rows, err := q.db.Query(ctx, searchChunksSQL, embedding, nullableJSON(filter), limit)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows, true)
}

const searchChunksTextSQL = `
SELECT id, content, document_id, chunk_index, metadata, created_at,
       ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)) AS score
FROM chunks
WHERE to_tsvector('english', content) @@ plainto_tsquery('english', $1)
  AND ($2::jsonb IS NULL OR metadata @> $2)
ORDER BY score DESC
LIMIT $3`

func (q *Queries) SearchChunksText(ctx context.Context, query string, filter []byte, limit int) ([]ChunkRow, error) {
	rows, err := q.db.Query(ctx, searchChunksTextSQL, query, nullableJSON(filter), limit)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows, true)
}

const countChunksSQL = `
SELECT count(*) FROM chunks
WHERE ($1::jsonb IS NULL OR metadata @> $1)`

func (q *Queries) CountChunks(ctx context.Context, filter []byte) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countChunksSQL, nullableJSON(filter)).Scan(&count)
	return count, err
}

func (q *Queries) DeleteChunk(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chunk %q not found", id)
	}
	return nil
}

func (q *Queries) DeleteDocumentChunks(ctx context.Context, documentID string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listChunksByTopicSQL = `
SELECT id, content, document_id, chunk_index, metadata, created_at
FROM chunks
WHERE metadata->>'topic' = $1
ORDER BY document_id, chunk_index
LIMIT $2`

func (q *Queries) ListChunksByTopic(ctx context.Context, topicID string, limit int) ([]ChunkRow, error) {
	rows, err := q.db.Query(ctx, listChunksByTopicSQL, topicID, limit)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows, false)
}

// nullableJSON maps an empty filter to SQL NULL so the same query serves
// filtered and unfiltered calls.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func scanChunkRows(rows pgx.Rows, withScore bool) ([]ChunkRow, error) {
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		dest := []any{&r.ID, &r.Content, &r.DocumentID, &r.ChunkIndex, &r.Metadata, &r.CreatedAt}
		if withScore {
			dest = append(dest, &r.Score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
