package topic

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownTopic is returned when a topic ID does not resolve to a
// registered topic. During registry construction this is a configuration
// bug and aborts startup; at request time it is surfaced to the caller.
var ErrUnknownTopic = errors.New("unknown topic")

// Registry is the authoritative, immutable set of topics.
type Registry struct {
	topics []Topic
	byID   map[string]*Topic
}

// NewRegistry builds a Registry from the given topics, validating the whole
// set up front. It reports every problem found, not just the first, so a
// broken catalog can be fixed in one pass.
func NewRegistry(topics []Topic) (*Registry, error) {
	if err := validateTopics(topics); err != nil {
		return nil, err
	}

	r := &Registry{
		topics: slices.Clone(topics),
		byID:   make(map[string]*Topic, len(topics)),
	}
	for i := range r.topics {
		r.byID[r.topics[i].ID] = &r.topics[i]
	}
	return r, nil
}

// Get returns the topic with the given ID, or ErrUnknownTopic.
func (r *Registry) Get(id string) (Topic, error) {
	t, ok := r.byID[id]
	if !ok {
		return Topic{}, fmt.Errorf("%w: %q", ErrUnknownTopic, id)
	}
	return *t, nil
}

// Has reports whether the given topic ID is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns a copy of every registered topic. Order is the catalog
// declaration order; callers needing a specific order must sort.
func (r *Registry) All() []Topic {
	return slices.Clone(r.topics)
}

// Len returns the number of registered topics.
func (r *Registry) Len() int {
	return len(r.topics)
}

// ByStrand returns all topics in the given strand, difficulty ascending
// with ties broken by ID.
func (r *Registry) ByStrand(s Strand) []Topic {
	var out []Topic
	for _, t := range r.topics {
		if t.Strand == s {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b Topic) int {
		if a.Difficulty != b.Difficulty {
			return a.Difficulty - b.Difficulty
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// validateTopics performs all structural checks on the topic set.
// Returns a combined error describing every problem found, or nil.
func validateTopics(topics []Topic) error {
	var errs []string

	if len(topics) == 0 {
		errs = append(errs, "catalog is empty")
	}

	idSet := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t.ID == "" {
			errs = append(errs, "topic with empty ID")
			continue
		}
		if idSet[t.ID] {
			errs = append(errs, fmt.Sprintf("duplicate topic ID: %q", t.ID))
		}
		idSet[t.ID] = true

		if !strings.Contains(t.ID, ".") {
			errs = append(errs, fmt.Sprintf("topic ID %q is not dot-namespaced", t.ID))
		}
		if t.Difficulty < 1 || t.Difficulty > MaxDifficulty {
			errs = append(errs, fmt.Sprintf("topic %q: difficulty must be 1-%d, got %d", t.ID, MaxDifficulty, t.Difficulty))
		}
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("topic %q has no display name", t.ID))
		}
	}

	// Dangling prerequisite references are a fatal configuration error:
	// the graph would silently skip them otherwise.
	for _, t := range topics {
		for _, prereqID := range t.Prerequisites {
			if !idSet[prereqID] {
				errs = append(errs, fmt.Sprintf("topic %q references nonexistent prerequisite %q: %v",
					t.ID, prereqID, ErrUnknownTopic))
			}
			if prereqID == t.ID {
				errs = append(errs, fmt.Sprintf("topic %q lists itself as a prerequisite", t.ID))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("topic catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
