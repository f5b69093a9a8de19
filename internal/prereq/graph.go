// Package prereq builds the prerequisite graph over the topic registry and
// answers the questions the tutor asks of it: what must be known before a
// topic, in what order topics should be learned, and which prerequisites a
// learner is missing.
//
// The graph is constructed once at startup and never mutated, so every
// query is a pure read and safe for concurrent use. Hot-reloading a changed
// catalog means building a fresh Graph and swapping the pointer, never
// editing one in place.
package prereq

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/calcrag/calcrag/internal/topic"
)

// ErrCyclicDependency indicates the prerequisite edges contain a cycle.
// A cyclic catalog is unusable (no topic in the cycle can ever be learned
// first), so this is fatal at startup.
var ErrCyclicDependency = errors.New("cyclic dependency")

// Graph is a read-only view of the prerequisite DAG with the transitive
// closure and topological order precomputed at construction.
type Graph struct {
	reg        *topic.Registry
	direct     map[string][]string
	dependents map[string][]string
	closure    map[string][]string // transitive prerequisites, sorted by ID
	topoOrder  []string
	topoIndex  map[string]int
}

// NewGraph builds the graph from a validated registry. It fails with
// ErrCyclicDependency (naming the cycle) if the prerequisite edges are not
// acyclic.
func NewGraph(reg *topic.Registry) (*Graph, error) {
	topics := reg.All()

	g := &Graph{
		reg:        reg,
		direct:     make(map[string][]string, len(topics)),
		dependents: make(map[string][]string),
		closure:    make(map[string][]string, len(topics)),
		topoIndex:  make(map[string]int, len(topics)),
	}

	for _, t := range topics {
		prereqs := slices.Clone(t.Prerequisites)
		sort.Strings(prereqs)
		g.direct[t.ID] = prereqs
		for _, p := range t.Prerequisites {
			g.dependents[p] = append(g.dependents[p], t.ID)
		}
	}
	for id := range g.dependents {
		sort.Strings(g.dependents[id])
	}

	// Depth-first traversal with a visited set memoizes the transitive
	// closure and detects cycles in one pass.
	state := make(map[string]int, len(topics)) // 0 unvisited, 1 in progress, 2 done
	var stack []string
	for _, t := range topics {
		if err := g.computeClosure(t.ID, state, &stack); err != nil {
			return nil, err
		}
	}

	g.topoOrder = g.kahnOrder(topics)
	for i, id := range g.topoOrder {
		g.topoIndex[id] = i
	}

	return g, nil
}

// computeClosure fills g.closure[id] via DFS. stack tracks the in-progress
// path so a detected cycle can be reported by name.
func (g *Graph) computeClosure(id string, state map[string]int, stack *[]string) error {
	switch state[id] {
	case 2:
		return nil
	case 1:
		// Back edge: the cycle is the suffix of the stack starting at id.
		i := slices.Index(*stack, id)
		cycle := append(slices.Clone((*stack)[i:]), id)
		return fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(cycle, " -> "))
	}

	state[id] = 1
	*stack = append(*stack, id)

	seen := make(map[string]bool)
	for _, p := range g.direct[id] {
		if err := g.computeClosure(p, state, stack); err != nil {
			return err
		}
		seen[p] = true
		for _, pp := range g.closure[p] {
			seen[pp] = true
		}
	}

	*stack = (*stack)[:len(*stack)-1]
	state[id] = 2

	closure := make([]string, 0, len(seen))
	for p := range seen {
		closure = append(closure, p)
	}
	sort.Strings(closure)
	g.closure[id] = closure
	return nil
}

// kahnOrder produces a topological order with ties broken by ascending
// topic ID: at every step the smallest ready ID is emitted. Acyclicity is
// already guaranteed by computeClosure.
func (g *Graph) kahnOrder(topics []topic.Topic) []string {
	inDegree := make(map[string]int, len(topics))
	for _, t := range topics {
		inDegree[t.ID] = len(t.Prerequisites)
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(topics))
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, dep := range g.dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order
}

// Direct returns the direct prerequisite IDs of a topic, sorted by ID.
func (g *Graph) Direct(id string) ([]string, error) {
	prereqs, ok := g.direct[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", topic.ErrUnknownTopic, id)
	}
	return slices.Clone(prereqs), nil
}

// Transitive returns every topic reachable by following prerequisite edges
// from the given topic, sorted by ID. The topic itself is never included.
func (g *Graph) Transitive(id string) ([]string, error) {
	closure, ok := g.closure[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", topic.ErrUnknownTopic, id)
	}
	return slices.Clone(closure), nil
}

// Dependents returns the topics that list the given topic as a direct
// prerequisite, sorted by ID.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// TopologicalOrder returns all topic IDs with every topic after all of its
// transitive prerequisites. Topics with no ordering constraint between them
// appear in ascending ID order.
func (g *Graph) TopologicalOrder() []string {
	return slices.Clone(g.topoOrder)
}

// Missing returns the transitive prerequisites of a topic that are not in
// the mastered set, in topological order (what to learn first, first).
func (g *Graph) Missing(id string, mastered map[string]bool) ([]string, error) {
	closure, err := g.Transitive(id)
	if err != nil {
		return nil, err
	}

	missing := closure[:0]
	for _, p := range closure {
		if !mastered[p] {
			missing = append(missing, p)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return g.topoIndex[missing[i]] < g.topoIndex[missing[j]]
	})
	return missing, nil
}

// LearningPath returns the topics to study, in order, to become ready for
// the target topic: the missing prerequisites in topological order followed
// by the target itself.
func (g *Graph) LearningPath(id string, mastered map[string]bool) ([]string, error) {
	missing, err := g.Missing(id, mastered)
	if err != nil {
		return nil, err
	}
	return append(missing, id), nil
}
