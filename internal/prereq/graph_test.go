package prereq

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/calcrag/calcrag/internal/topic"
)

// chainRegistry is the four-topic linear chain used throughout these tests:
// algebra.functions <- limits.introduction <- derivatives.basic <- derivatives.chain_rule
func chainRegistry(t *testing.T) *topic.Registry {
	t.Helper()
	reg, err := topic.NewRegistry([]topic.Topic{
		{ID: "algebra.functions", Name: "Functions", Strand: topic.StrandAlgebra, Difficulty: 1},
		{ID: "limits.introduction", Name: "Limits", Strand: topic.StrandLimits, Difficulty: 3,
			Prerequisites: []string{"algebra.functions"}},
		{ID: "derivatives.basic", Name: "Basic Derivatives", Strand: topic.StrandDerivatives, Difficulty: 2,
			Prerequisites: []string{"limits.introduction"}},
		{ID: "derivatives.chain_rule", Name: "Chain Rule", Strand: topic.StrandDerivatives, Difficulty: 4,
			Prerequisites: []string{"derivatives.basic"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func catalogGraph(t *testing.T) *Graph {
	t.Helper()
	reg, err := topic.NewRegistry(topic.Catalog())
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGraph(reg)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGraph_TransitiveChain(t *testing.T) {
	g, err := NewGraph(chainRegistry(t))
	if err != nil {
		t.Fatal(err)
	}

	got, err := g.Transitive("derivatives.chain_rule")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"algebra.functions", "derivatives.basic", "limits.introduction"}
	if !slices.Equal(got, want) {
		t.Errorf("Transitive(derivatives.chain_rule) = %v, want %v", got, want)
	}
}

func TestGraph_TransitiveUnknownTopic(t *testing.T) {
	g, err := NewGraph(chainRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Transitive("limits.nope"); !errors.Is(err, topic.ErrUnknownTopic) {
		t.Errorf("Transitive(unknown) error = %v, want ErrUnknownTopic", err)
	}
}

func TestGraph_Acyclicity(t *testing.T) {
	g := catalogGraph(t)

	for _, id := range g.TopologicalOrder() {
		closure, err := g.Transitive(id)
		if err != nil {
			t.Fatal(err)
		}
		if slices.Contains(closure, id) {
			t.Errorf("topic %s transitively requires itself", id)
		}
	}
}

func TestGraph_DirectSubsetOfTransitive(t *testing.T) {
	g := catalogGraph(t)

	for _, id := range g.TopologicalOrder() {
		direct, err := g.Direct(id)
		if err != nil {
			t.Fatal(err)
		}
		closure, err := g.Transitive(id)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range direct {
			if !slices.Contains(closure, p) {
				t.Errorf("topic %s: direct prerequisite %s missing from transitive set", id, p)
			}
		}
	}
}

func TestGraph_TopologicalOrder(t *testing.T) {
	g := catalogGraph(t)

	order := g.TopologicalOrder()
	reg, _ := topic.NewRegistry(topic.Catalog())
	if len(order) != reg.Len() {
		t.Fatalf("topological order has %d topics, registry has %d", len(order), reg.Len())
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := position[id]; dup {
			t.Fatalf("topic %s appears twice in topological order", id)
		}
		position[id] = i
	}

	for _, id := range order {
		closure, err := g.Transitive(id)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range closure {
			if position[p] >= position[id] {
				t.Errorf("prerequisite %s appears at %d, after %s at %d",
					p, position[p], id, position[id])
			}
		}
	}
}

func TestGraph_TopologicalOrderDeterministic(t *testing.T) {
	// Two independent roots: ties must break by ascending ID.
	reg, err := topic.NewRegistry([]topic.Topic{
		{ID: "b.root", Name: "B", Strand: topic.StrandAlgebra, Difficulty: 1},
		{ID: "a.root", Name: "A", Strand: topic.StrandAlgebra, Difficulty: 1},
		{ID: "c.leaf", Name: "C", Strand: topic.StrandAlgebra, Difficulty: 2,
			Prerequisites: []string{"a.root", "b.root"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGraph(reg)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a.root", "b.root", "c.leaf"}
	for range 5 {
		if got := g.TopologicalOrder(); !slices.Equal(got, want) {
			t.Fatalf("TopologicalOrder() = %v, want %v", got, want)
		}
	}
}

func TestNewGraph_CycleDetection(t *testing.T) {
	// Registry validation only checks references, so a cycle survives to
	// graph construction, where it must be fatal and named.
	reg, err := topic.NewRegistry([]topic.Topic{
		{ID: "x.one", Name: "One", Strand: topic.StrandAlgebra, Difficulty: 1,
			Prerequisites: []string{"x.three"}},
		{ID: "x.two", Name: "Two", Strand: topic.StrandAlgebra, Difficulty: 1,
			Prerequisites: []string{"x.one"}},
		{ID: "x.three", Name: "Three", Strand: topic.StrandAlgebra, Difficulty: 1,
			Prerequisites: []string{"x.two"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = NewGraph(reg)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("NewGraph(cyclic) error = %v, want ErrCyclicDependency", err)
	}
	for _, id := range []string{"x.one", "x.two", "x.three"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("cycle error %q does not name %s", err, id)
		}
	}
}

func TestGraph_Missing(t *testing.T) {
	g, err := NewGraph(chainRegistry(t))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		mastered map[string]bool
		want     []string
	}{
		{
			name:     "nothing mastered",
			mastered: nil,
			want:     []string{"algebra.functions", "limits.introduction", "derivatives.basic"},
		},
		{
			name:     "partial mastery",
			mastered: map[string]bool{"algebra.functions": true, "limits.introduction": true},
			want:     []string{"derivatives.basic"},
		},
		{
			name: "everything mastered",
			mastered: map[string]bool{
				"algebra.functions": true, "limits.introduction": true, "derivatives.basic": true,
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Missing("derivatives.chain_rule", tt.mastered)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Missing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGraph_LearningPath(t *testing.T) {
	g, err := NewGraph(chainRegistry(t))
	if err != nil {
		t.Fatal(err)
	}

	path, err := g.LearningPath("derivatives.chain_rule", map[string]bool{"algebra.functions": true})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"limits.introduction", "derivatives.basic", "derivatives.chain_rule"}
	if !slices.Equal(path, want) {
		t.Errorf("LearningPath() = %v, want %v", path, want)
	}
}

func TestGraph_Dependents(t *testing.T) {
	g, err := NewGraph(chainRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	got := g.Dependents("derivatives.basic")
	if !slices.Equal(got, []string{"derivatives.chain_rule"}) {
		t.Errorf("Dependents(derivatives.basic) = %v", got)
	}
}
