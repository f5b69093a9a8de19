package mastery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/topic"
)

type mockQuerier struct {
	upserts       []string
	deletes       []string
	records       []Record
	listErr       error
	deleteAffects int64
	learnerWipes  int
	wipeAffects   int64
}

func (m *mockQuerier) UpsertMastery(_ context.Context, _ uuid.UUID, topicID string) error {
	m.upserts = append(m.upserts, topicID)
	return nil
}

func (m *mockQuerier) DeleteMastery(_ context.Context, _ uuid.UUID, topicID string) (int64, error) {
	m.deletes = append(m.deletes, topicID)
	return m.deleteAffects, nil
}

func (m *mockQuerier) ListMastered(_ context.Context, _ uuid.UUID) ([]Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockQuerier) DeleteLearner(_ context.Context, _ uuid.UUID) (int64, error) {
	m.learnerWipes++
	return m.wipeAffects, nil
}

func newTestStore(t *testing.T, q Querier) *Store {
	t.Helper()
	reg, err := topic.NewRegistry(topic.Catalog())
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(q, reg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_Mark(t *testing.T) {
	q := &mockQuerier{}
	s := newTestStore(t, q)

	err := s.Mark(context.Background(), uuid.New(), "limits.introduction", "algebra.basics")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"limits.introduction", "algebra.basics"}
	if diff := cmp.Diff(want, q.upserts); diff != "" {
		t.Errorf("upserts mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Mark_UnknownTopicWritesNothing(t *testing.T) {
	q := &mockQuerier{}
	s := newTestStore(t, q)

	err := s.Mark(context.Background(), uuid.New(), "limits.introduction", "limits.nonsense")
	if !errors.Is(err, topic.ErrUnknownTopic) {
		t.Fatalf("error = %v, want ErrUnknownTopic", err)
	}
	if len(q.upserts) != 0 {
		t.Errorf("upserts = %v, want none before validation passes", q.upserts)
	}
}

func TestStore_Mark_NilLearner(t *testing.T) {
	s := newTestStore(t, &mockQuerier{})
	if err := s.Mark(context.Background(), uuid.Nil, "limits.introduction"); err == nil {
		t.Fatal("expected error for nil learner ID")
	}
}

func TestStore_Unmark(t *testing.T) {
	q := &mockQuerier{deleteAffects: 1}
	s := newTestStore(t, q)

	if err := s.Unmark(context.Background(), uuid.New(), "limits.introduction"); err != nil {
		t.Fatal(err)
	}

	q.deleteAffects = 0
	err := s.Unmark(context.Background(), uuid.New(), "limits.introduction")
	if !errors.Is(err, ErrNotMastered) {
		t.Errorf("error = %v, want ErrNotMastered", err)
	}
}

func TestStore_Mastered(t *testing.T) {
	now := time.Now()
	q := &mockQuerier{records: []Record{
		{TopicID: "algebra.basics", MasteredAt: now.Add(-time.Hour)},
		{TopicID: "limits.introduction", MasteredAt: now},
	}}
	s := newTestStore(t, q)

	set, err := s.Mastered(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"algebra.basics": true, "limits.introduction": true}
	if diff := cmp.Diff(want, set); diff != "" {
		t.Errorf("mastered set mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Mastered_EmptyLearner(t *testing.T) {
	s := newTestStore(t, &mockQuerier{})

	set, err := s.Mastered(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 0 {
		t.Errorf("set = %v, want empty", set)
	}
}

func TestStore_Reset(t *testing.T) {
	q := &mockQuerier{wipeAffects: 7}
	s := newTestStore(t, q)

	removed, err := s.Reset(context.Background(), uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 7 || q.learnerWipes != 1 {
		t.Errorf("removed = %d (wipes %d), want 7 (1)", removed, q.learnerWipes)
	}
}

func TestNew_Validation(t *testing.T) {
	reg, err := topic.NewRegistry(topic.Catalog())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(nil, reg, nil); err == nil {
		t.Error("expected error for nil querier")
	}
	if _, err := New(&mockQuerier{}, nil, nil); err == nil {
		t.Error("expected error for nil registry")
	}
}
