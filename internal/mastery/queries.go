package mastery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the queries need.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Queries implements Querier with direct parameterized SQL over pgx.
type Queries struct {
	db DB
}

// NewQueries wraps a pool (or transaction) for mastery queries.
func NewQueries(db DB) *Queries {
	return &Queries{db: db}
}

const upsertMasterySQL = `
INSERT INTO learner_mastery (learner_id, topic_id)
VALUES ($1, $2)
ON CONFLICT (learner_id, topic_id) DO NOTHING`

func (q *Queries) UpsertMastery(ctx context.Context, learnerID uuid.UUID, topicID string) error {
	if _, err := q.db.Exec(ctx, upsertMasterySQL, learnerID, topicID); err != nil {
		return fmt.Errorf("upsert mastery: %w", err)
	}
	return nil
}

const deleteMasterySQL = `
DELETE FROM learner_mastery
WHERE learner_id = $1 AND topic_id = $2`

func (q *Queries) DeleteMastery(ctx context.Context, learnerID uuid.UUID, topicID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteMasterySQL, learnerID, topicID)
	if err != nil {
		return 0, fmt.Errorf("delete mastery: %w", err)
	}
	return tag.RowsAffected(), nil
}

const listMasteredSQL = `
SELECT topic_id, mastered_at
FROM learner_mastery
WHERE learner_id = $1
ORDER BY mastered_at, topic_id`

func (q *Queries) ListMastered(ctx context.Context, learnerID uuid.UUID) ([]Record, error) {
	rows, err := q.db.Query(ctx, listMasteredSQL, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list mastered: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.TopicID, &rec.MasteredAt); err != nil {
			return nil, fmt.Errorf("scan mastery row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery rows: %w", err)
	}
	return records, nil
}

const deleteLearnerSQL = `
DELETE FROM learner_mastery
WHERE learner_id = $1`

func (q *Queries) DeleteLearner(ctx context.Context, learnerID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLearnerSQL, learnerID)
	if err != nil {
		return 0, fmt.Errorf("delete learner mastery: %w", err)
	}
	return tag.RowsAffected(), nil
}
