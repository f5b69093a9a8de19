// Package mastery persists which topics each learner has mastered. The
// gap detector consumes the mastered set when deciding which prerequisites
// a question exposes as missing.
package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/topic"
)

// ErrNotMastered is returned when unmarking a topic the learner never
// mastered.
var ErrNotMastered = errors.New("topic not mastered")

// Record is one mastered topic with the time it was recorded.
type Record struct {
	TopicID    string
	MasteredAt time.Time
}

// Querier defines the database operations the store needs.
type Querier interface {
	UpsertMastery(ctx context.Context, learnerID uuid.UUID, topicID string) error
	DeleteMastery(ctx context.Context, learnerID uuid.UUID, topicID string) (int64, error)
	ListMastered(ctx context.Context, learnerID uuid.UUID) ([]Record, error)
	DeleteLearner(ctx context.Context, learnerID uuid.UUID) (int64, error)
}

// Store tracks per-learner topic mastery against the topic registry.
// Unknown topic IDs are rejected before touching the database.
//
// Store is safe for concurrent use.
type Store struct {
	querier  Querier
	registry *topic.Registry
	logger   log.Logger
}

// New creates a mastery store. The registry validates topic IDs on writes.
func New(querier Querier, registry *topic.Registry, logger log.Logger) (*Store, error) {
	if querier == nil {
		return nil, errors.New("mastery: querier is required")
	}
	if registry == nil {
		return nil, errors.New("mastery: registry is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, registry: registry, logger: logger}, nil
}

// Mark records the topics as mastered by the learner. Every topic ID is
// validated first; an unknown ID fails the whole call before any write.
// Marking an already-mastered topic is a no-op.
func (s *Store) Mark(ctx context.Context, learnerID uuid.UUID, topicIDs ...string) error {
	if learnerID == uuid.Nil {
		return errors.New("mastery: learner ID is required")
	}
	for _, id := range topicIDs {
		if !s.registry.Has(id) {
			return fmt.Errorf("%w: %q", topic.ErrUnknownTopic, id)
		}
	}
	for _, id := range topicIDs {
		if err := s.querier.UpsertMastery(ctx, learnerID, id); err != nil {
			return fmt.Errorf("mark %s: %w", id, err)
		}
	}
	s.logger.Debug("marked topics mastered", "learner_id", learnerID, "topics", len(topicIDs))
	return nil
}

// Unmark removes a mastered topic. Returns ErrNotMastered when the learner
// had not mastered it.
func (s *Store) Unmark(ctx context.Context, learnerID uuid.UUID, topicID string) error {
	if !s.registry.Has(topicID) {
		return fmt.Errorf("%w: %q", topic.ErrUnknownTopic, topicID)
	}
	affected, err := s.querier.DeleteMastery(ctx, learnerID, topicID)
	if err != nil {
		return fmt.Errorf("unmark %s: %w", topicID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotMastered, topicID)
	}
	return nil
}

// Mastered returns the learner's mastered topics as a set, in the shape
// the gap detector consumes. A learner with no rows gets an empty set.
func (s *Store) Mastered(ctx context.Context, learnerID uuid.UUID) (map[string]bool, error) {
	records, err := s.querier.ListMastered(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list mastered: %w", err)
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.TopicID] = true
	}
	return set, nil
}

// List returns the learner's mastery records oldest first.
func (s *Store) List(ctx context.Context, learnerID uuid.UUID) ([]Record, error) {
	records, err := s.querier.ListMastered(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list mastered: %w", err)
	}
	return records, nil
}

// Reset wipes all mastery records for the learner and reports how many
// were removed.
func (s *Store) Reset(ctx context.Context, learnerID uuid.UUID) (int, error) {
	affected, err := s.querier.DeleteLearner(ctx, learnerID)
	if err != nil {
		return 0, fmt.Errorf("reset learner: %w", err)
	}
	s.logger.Debug("reset learner mastery", "learner_id", learnerID, "removed", affected)
	return int(affected), nil
}
