package retrieval

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/topic"
)

func newPrereqRetriever(t *testing.T, store Searcher, cfg PrereqConfig) *PrereqRetriever {
	t.Helper()
	reg, err := topic.NewRegistry(topic.Catalog())
	if err != nil {
		t.Fatal(err)
	}
	g, err := prereq.NewGraph(reg)
	if err != nil {
		t.Fatal(err)
	}
	d, err := prereq.NewDetector(reg, g)
	if err != nil {
		t.Fatal(err)
	}
	base, err := New(store, Config{TopK: 5, Hybrid: false}, nil)
	if err != nil {
		t.Fatal(err)
	}
	pr, err := NewPrereqRetriever(base, reg, d, g, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return pr
}

func TestPrereqRetriever_AugmentsWithPrerequisites(t *testing.T) {
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"Explain the chain rule": {result("cr-1", 0.9)},
			"Basic Derivative Rules: Explain the chain rule": {result("deriv-1", 0.8)},
			"Function Composition: Explain the chain rule":   {result("comp-1", 0.7)},
		},
	}
	pr := newPrereqRetriever(t, store, PrereqConfig{MaxDepth: 1, PerTopicTopK: 2, Weight: 0.5})

	got, err := pr.Retrieve(context.Background(), "Explain the chain rule", 5)
	if err != nil {
		t.Fatal(err)
	}

	if got.DetectedTopic != "derivatives.chain_rule" {
		t.Errorf("DetectedTopic = %q, want derivatives.chain_rule", got.DetectedTopic)
	}
	wantPrereqs := []string{"derivatives.basic", "functions.composition"}
	if diff := cmp.Diff(wantPrereqs, got.Prerequisites); diff != "" {
		t.Errorf("Prerequisites mismatch (-want +got):\n%s", diff)
	}
	if got.MainCount != 1 || got.PrereqCount != 2 {
		t.Errorf("counts = %d main, %d prereq, want 1 and 2", got.MainCount, got.PrereqCount)
	}

	// Weighted prerequisite scores: 0.8*0.5 and 0.7*0.5 rank below the
	// main result's 0.9.
	if diff := cmp.Diff([]string{"cr-1", "deriv-1", "comp-1"}, resultIDs(got.Results)); diff != "" {
		t.Errorf("merged order mismatch (-want +got):\n%s", diff)
	}

	for _, res := range got.Results[1:] {
		if res.Chunk.Metadata[MetaIsPrerequisite] != "true" {
			t.Errorf("chunk %s missing %s marker", res.Chunk.ID, MetaIsPrerequisite)
		}
		if res.Chunk.Metadata[MetaPrerequisiteFor] != "derivatives.chain_rule" {
			t.Errorf("chunk %s %s = %q", res.Chunk.ID, MetaPrerequisiteFor, res.Chunk.Metadata[MetaPrerequisiteFor])
		}
	}
	if _, ok := got.Results[0].Chunk.Metadata[MetaIsPrerequisite]; ok {
		t.Error("main result must not carry the prerequisite marker")
	}
}

func TestPrereqRetriever_DepthTwoReachesIndirectPrerequisites(t *testing.T) {
	store := &stubSearcher{semantic: map[string][]knowledge.Result{}}
	pr := newPrereqRetriever(t, store, PrereqConfig{MaxDepth: 2, PerTopicTopK: 1, Weight: 0.7})

	got, err := pr.Retrieve(context.Background(), "Explain the chain rule", 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"derivatives.basic",
		"derivatives.definition",
		"functions.composition",
		"functions.notation",
	}
	if diff := cmp.Diff(want, got.Prerequisites); diff != "" {
		t.Errorf("Prerequisites mismatch (-want +got):\n%s", diff)
	}
}

func TestPrereqRetriever_NoTopicDetected(t *testing.T) {
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"What is the meaning of life?": {result("misc-1", 0.6)},
		},
	}
	pr := newPrereqRetriever(t, store, DefaultPrereqConfig())

	got, err := pr.Retrieve(context.Background(), "What is the meaning of life?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got.DetectedTopic != "" {
		t.Errorf("DetectedTopic = %q, want empty", got.DetectedTopic)
	}
	if got.Prerequisites != nil {
		t.Errorf("Prerequisites = %v, want nil", got.Prerequisites)
	}
	if len(store.semanticCalls) != 1 {
		t.Errorf("semantic calls = %d, want 1", len(store.semanticCalls))
	}
	if diff := cmp.Diff([]string{"misc-1"}, resultIDs(got.Results)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestPrereqRetriever_DedupesAcrossOrigins(t *testing.T) {
	// The same chunk surfaces from the main search and a prerequisite
	// search. The higher (unweighted) score must win.
	store := &stubSearcher{
		semantic: map[string][]knowledge.Result{
			"Explain the chain rule": {result("shared", 0.9)},
			"Basic Derivative Rules: Explain the chain rule": {result("shared", 0.8)},
		},
	}
	pr := newPrereqRetriever(t, store, PrereqConfig{MaxDepth: 1, PerTopicTopK: 1, Weight: 0.5})

	got, err := pr.Retrieve(context.Background(), "Explain the chain rule", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(got.Results))
	}
	if got.Results[0].Score != 0.9 {
		t.Errorf("score = %v, want the unweighted 0.9", got.Results[0].Score)
	}
}

func TestPrereqRetriever_MostAdvancedTopicWins(t *testing.T) {
	store := &stubSearcher{semantic: map[string][]knowledge.Result{}}
	pr := newPrereqRetriever(t, store, PrereqConfig{MaxDepth: 1, PerTopicTopK: 1, Weight: 0.7})

	// Mentions both limits and u-substitution; the question's subject is
	// the more advanced integration topic.
	got, err := pr.Retrieve(context.Background(), "Do I need limits before u-substitution?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got.DetectedTopic != "integration.substitution" {
		t.Errorf("DetectedTopic = %q, want integration.substitution", got.DetectedTopic)
	}
}

func TestPrereqRetriever_RetrieveWithPath(t *testing.T) {
	store := &stubSearcher{semantic: map[string][]knowledge.Result{}}
	pr := newPrereqRetriever(t, store, PrereqConfig{MaxDepth: 1, PerTopicTopK: 1, Weight: 0.7})

	mastered := map[string]bool{
		"algebra.basics":         true,
		"algebra.factoring":      true,
		"functions.notation":     true,
		"functions.composition":  true,
		"limits.introduction":    true,
		"derivatives.definition": true,
	}
	got, path, err := pr.RetrieveWithPath(context.Background(), "Explain the chain rule", mastered, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got.DetectedTopic != "derivatives.chain_rule" {
		t.Fatalf("DetectedTopic = %q", got.DetectedTopic)
	}
	want := []string{"derivatives.basic", "derivatives.chain_rule"}
	if diff := cmp.Diff(want, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPrereqRetriever_Validation(t *testing.T) {
	if _, err := NewPrereqRetriever(nil, nil, nil, nil, DefaultPrereqConfig(), nil); err == nil {
		t.Fatal("expected error for nil dependencies")
	}
}
