package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/retrieval"
	"github.com/calcrag/calcrag/internal/route"
	"github.com/calcrag/calcrag/internal/topic"
)

type stubGenerator struct {
	name    string
	answer  string
	err     error
	prompts []string
}

func (s *stubGenerator) Name() string { return s.name }

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

type stubRetriever struct {
	result *retrieval.PrereqResult
	err    error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ int) (*retrieval.PrereqResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubMastery struct {
	set   map[string]bool
	calls int
}

func (s *stubMastery) Mastered(_ context.Context, _ uuid.UUID) (map[string]bool, error) {
	s.calls++
	return s.set, nil
}

func chunkResult(id, topicID, content string, score float32, isPrereq bool) knowledge.Result {
	meta := map[string]string{
		knowledge.MetaTopic:      topicID,
		knowledge.MetaSourceFile: topicID + ".md",
	}
	if isPrereq {
		meta[retrieval.MetaIsPrerequisite] = "true"
	}
	return knowledge.Result{
		Chunk: knowledge.Chunk{ID: id, Content: content, Metadata: meta},
		Score: score,
	}
}

func newTestPipeline(t *testing.T, retriever Retriever, mastery MasterySource, gens map[route.Tier]route.Generator) *Pipeline {
	t.Helper()
	reg, err := topic.NewRegistry(topic.Catalog())
	if err != nil {
		t.Fatal(err)
	}
	graph, err := prereq.NewGraph(reg)
	if err != nil {
		t.Fatal(err)
	}
	detector, err := prereq.NewDetector(reg, graph)
	if err != nil {
		t.Fatal(err)
	}
	classifier, err := route.NewClassifier(route.DefaultClassifierConfig())
	if err != nil {
		t.Fatal(err)
	}
	router, err := route.NewRouter(classifier, gens, route.RouterConfig{AttemptTimeout: time.Second}, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPipeline(router, retriever, detector, mastery, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func allTopicsMastered() map[string]bool {
	set := make(map[string]bool)
	for _, tp := range topic.Catalog() {
		set[tp.ID] = true
	}
	return set
}

func TestPipeline_Ask(t *testing.T) {
	retriever := &stubRetriever{result: &retrieval.PrereqResult{
		Results: []knowledge.Result{
			chunkResult("cr:0", "derivatives.chain_rule", "The chain rule handles composite functions.", 0.9, false),
			chunkResult("comp:0", "functions.composition", "Composition plugs one function into another.", 0.5, true),
		},
		DetectedTopic: "derivatives.chain_rule",
		MainCount:     1,
		PrereqCount:   1,
	}}
	complexGen := &stubGenerator{name: "mock/deep", answer: "Step by step: apply the outer derivative first."}
	gens := map[route.Tier]route.Generator{
		route.TierSimple:   &stubGenerator{name: "mock/fast", answer: "simple"},
		route.TierModerate: &stubGenerator{name: "mock/mid", answer: "moderate"},
		route.TierComplex:  complexGen,
	}
	p := newTestPipeline(t, retriever, nil, gens)

	resp, err := p.Ask(context.Background(), uuid.Nil, "Explain the chain rule step by step")
	if err != nil {
		t.Fatal(err)
	}

	if resp.Answer != complexGen.answer {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.Classified != route.TierComplex || resp.Tier != route.TierComplex {
		t.Errorf("tiers = %v/%v, want complex/complex", resp.Classified, resp.Tier)
	}
	if resp.Escalated {
		t.Error("Escalated = true for a directly served question")
	}
	if resp.Model != "mock/deep" {
		t.Errorf("Model = %q", resp.Model)
	}

	if len(resp.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(resp.Sources))
	}
	if resp.Sources[0].TopicID != "derivatives.chain_rule" || resp.Sources[0].Prerequisite {
		t.Errorf("source 0 = %+v", resp.Sources[0])
	}
	if !resp.Sources[1].Prerequisite {
		t.Errorf("source 1 not marked prerequisite: %+v", resp.Sources[1])
	}

	// No learner state, so the chain rule's prerequisites are all gaps.
	if resp.Gaps == nil || !resp.Gaps.HasGaps() {
		t.Fatal("expected prerequisite gaps for an anonymous learner")
	}
	if resp.GapNotice == "" {
		t.Error("GapNotice empty despite gaps")
	}

	if len(complexGen.prompts) != 1 {
		t.Fatalf("generator called %d times", len(complexGen.prompts))
	}
	prompt := complexGen.prompts[0]
	for _, want := range []string{
		"The chain rule handles composite functions.",
		"Prerequisite",
		"Missing prerequisites",
		"Student Question: Explain the chain rule step by step",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestPipeline_Ask_MasteredLearnerHasNoGapNotice(t *testing.T) {
	retriever := &stubRetriever{result: &retrieval.PrereqResult{}}
	gens := map[route.Tier]route.Generator{
		route.TierSimple:   &stubGenerator{name: "mock/fast", answer: "a derivative is a rate of change"},
		route.TierModerate: &stubGenerator{name: "mock/mid", answer: "moderate"},
		route.TierComplex:  &stubGenerator{name: "mock/deep", answer: "complex"},
	}
	mastery := &stubMastery{set: allTopicsMastered()}
	p := newTestPipeline(t, retriever, mastery, gens)

	resp, err := p.Ask(context.Background(), uuid.New(), "What is a derivative?")
	if err != nil {
		t.Fatal(err)
	}
	if mastery.calls != 1 {
		t.Errorf("mastery lookups = %d, want 1", mastery.calls)
	}
	if resp.Gaps.HasGaps() {
		t.Errorf("gaps = %v for a fully mastered learner", resp.Gaps.Missing)
	}
	if resp.GapNotice != "" {
		t.Errorf("GapNotice = %q, want empty", resp.GapNotice)
	}
	if resp.Classified != route.TierSimple {
		t.Errorf("Classified = %v, want simple", resp.Classified)
	}
}

func TestPipeline_Ask_AnonymousSkipsMasteryLookup(t *testing.T) {
	mastery := &stubMastery{set: map[string]bool{}}
	gens := map[route.Tier]route.Generator{
		route.TierSimple:   &stubGenerator{name: "mock/fast", answer: "ok"},
		route.TierModerate: &stubGenerator{name: "mock/mid", answer: "ok"},
		route.TierComplex:  &stubGenerator{name: "mock/deep", answer: "ok"},
	}
	p := newTestPipeline(t, &stubRetriever{result: &retrieval.PrereqResult{}}, mastery, gens)

	if _, err := p.Ask(context.Background(), uuid.Nil, "What is a limit?"); err != nil {
		t.Fatal(err)
	}
	if mastery.calls != 0 {
		t.Errorf("mastery lookups = %d, want 0 for anonymous", mastery.calls)
	}
}

func TestPipeline_Ask_EmptyQuestion(t *testing.T) {
	gens := map[route.Tier]route.Generator{
		route.TierSimple:   &stubGenerator{name: "a", answer: "x"},
		route.TierModerate: &stubGenerator{name: "b", answer: "x"},
		route.TierComplex:  &stubGenerator{name: "c", answer: "x"},
	}
	p := newTestPipeline(t, &stubRetriever{result: &retrieval.PrereqResult{}}, nil, gens)

	if _, err := p.Ask(context.Background(), uuid.Nil, "   "); err == nil {
		t.Fatal("expected error for blank question")
	}
}

func TestPipeline_Ask_GenerationFailurePropagates(t *testing.T) {
	transport := errors.New("connection refused")
	gens := map[route.Tier]route.Generator{
		route.TierSimple:   &stubGenerator{name: "a", err: transport},
		route.TierModerate: &stubGenerator{name: "b", err: transport},
		route.TierComplex:  &stubGenerator{name: "c", err: transport},
	}
	p := newTestPipeline(t, &stubRetriever{result: &retrieval.PrereqResult{}}, nil, gens)

	_, err := p.Ask(context.Background(), uuid.Nil, "What is a limit?")
	if !errors.Is(err, route.ErrGenerationUnavailable) {
		t.Errorf("error = %v, want ErrGenerationUnavailable", err)
	}
}

func TestPipeline_Ask_RetrievalFailurePropagates(t *testing.T) {
	wantErr := errors.New("database down")
	gens := map[route.Tier]route.Generator{
		route.TierSimple:   &stubGenerator{name: "a", answer: "x"},
		route.TierModerate: &stubGenerator{name: "b", answer: "x"},
		route.TierComplex:  &stubGenerator{name: "c", answer: "x"},
	}
	p := newTestPipeline(t, &stubRetriever{err: wantErr}, nil, gens)

	if _, err := p.Ask(context.Background(), uuid.Nil, "What is a limit?"); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	if _, err := NewPipeline(nil, &stubRetriever{}, nil, nil, Config{}, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
