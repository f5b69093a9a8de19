package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calcrag/calcrag/internal/knowledge"
)

type stubSearcher struct {
	semantic map[string][]knowledge.Result
	keyword  map[string][]knowledge.Result

	semanticCalls []string
	keywordCalls  []string

	semanticErr error
	keywordErr  error
}

func (s *stubSearcher) Search(_ context.Context, query string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	s.semanticCalls = append(s.semanticCalls, query)
	if s.semanticErr != nil {
		return nil, s.semanticErr
	}
	return s.semantic[query], nil
}

func (s *stubSearcher) SearchText(_ context.Context, query string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	s.keywordCalls = append(s.keywordCalls, query)
	if s.keywordErr != nil {
		return nil, s.keywordErr
	}
	return s.keyword[query], nil
}

func result(id string, score float32) knowledge.Result {
	return knowledge.Result{
		Chunk: knowledge.Chunk{ID: id, Content: "content of " + id, Metadata: map[string]string{}},
		Score: score,
	}
}

func resultIDs(results []knowledge.Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ID
	}
	return ids
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(nil, DefaultConfig(), nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestRetriever_EmptyQuery(t *testing.T) {
	r, err := New(&stubSearcher{}, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Retrieve(context.Background(), "   ", 5, nil); err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestRetriever_FusionRanksOverlapFirst(t *testing.T) {
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"chain rule": {result("a", 0.9), result("b", 0.8)},
		},
		keyword: map[string][]knowledge.Result{
			"chain rule": {result("b", 1.2), result("c", 0.4)},
		},
	}
	r, err := New(store, Config{TopK: 5, SemanticWeight: 0.7, Hybrid: true}, nil)
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.Retrieve(context.Background(), "chain rule", 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	// b appears in both rankings and must beat a, the top semantic hit.
	want := []string{"b", "a", "c"}
	if diff := cmp.Diff(want, resultIDs(results)); diff != "" {
		t.Errorf("fused order mismatch (-want +got):\n%s", diff)
	}
}

func TestRetriever_MinScoreDropsWeakSemanticMatches(t *testing.T) {
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"limits": {result("strong", 0.82), result("weak", 0.30)},
		},
	}
	r, err := New(store, Config{TopK: 5, MinScore: 0.45, Hybrid: false}, nil)
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.Retrieve(context.Background(), "limits", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"strong"}, resultIDs(results)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRetriever_SemanticOnlySkipsKeywordSearch(t *testing.T) {
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"limits": {result("a", 0.9)},
		},
	}
	r, err := New(store, Config{TopK: 5, Hybrid: false}, nil)
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.Retrieve(context.Background(), "limits", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.keywordCalls) != 0 {
		t.Errorf("keyword search called %d times, want 0", len(store.keywordCalls))
	}
	// Semantic-only mode keeps cosine similarities untouched.
	if results[0].Score != 0.9 {
		t.Errorf("score = %v, want 0.9", results[0].Score)
	}
}

func TestRetriever_TopKTruncates(t *testing.T) {
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"q": {result("a", 0.9), result("b", 0.8), result("c", 0.7)},
		},
	}
	r, err := New(store, Config{TopK: 5, Hybrid: false}, nil)
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.Retrieve(context.Background(), "q", 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, resultIDs(results)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRetriever_SearchErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection refused")
	r, err := New(&stubSearcher{semanticErr: wantErr}, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Retrieve(context.Background(), "q", 5, nil); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestRetriever_ByTopicUsesFilterQuery(t *testing.T) {
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"q": {result("a", 0.9)},
		},
	}
	r, err := New(store, Config{TopK: 5, Hybrid: false}, nil)
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.ByTopic(context.Background(), "q", "limits.introduction", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(store.semanticCalls) != 1 {
		t.Fatalf("results = %d, semantic calls = %d", len(results), len(store.semanticCalls))
	}
}
