package prereq

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/calcrag/calcrag/internal/topic"
)

// confusionSignals are phrases suggesting the learner does not understand
// the topic they are asking about, rather than asking a routine question.
var confusionSignals = []string{
	"don't understand",
	"dont understand",
	"confused",
	"not sure",
	"unclear",
	"help me understand",
	"can you explain",
	"lost",
}

// topicMatcher holds the compiled keyword patterns for one topic.
type topicMatcher struct {
	id       string
	patterns []*regexp.Regexp
}

// Detector maps free-text questions to topics and reports missing
// prerequisites. All keyword patterns are compiled once at construction;
// detection itself is a pure function over the compiled set.
type Detector struct {
	reg       *topic.Registry
	graph     *Graph
	matchers  []topicMatcher
	confusion []*regexp.Regexp
}

// NewDetector compiles one case-insensitive pattern per topic keyword.
// A topic with no keywords is simply never detected from text; it can still
// appear in gap reports as a prerequisite of a detected topic.
func NewDetector(reg *topic.Registry, graph *Graph) (*Detector, error) {
	d := &Detector{reg: reg, graph: graph}

	for _, t := range reg.All() {
		if len(t.Keywords) == 0 {
			continue
		}
		m := topicMatcher{id: t.ID, patterns: make([]*regexp.Regexp, 0, len(t.Keywords))}
		for _, kw := range t.Keywords {
			re, err := compileKeyword(kw)
			if err != nil {
				return nil, fmt.Errorf("topic %q: compiling keyword %q: %w", t.ID, kw, err)
			}
			m.patterns = append(m.patterns, re)
		}
		d.matchers = append(d.matchers, m)
	}

	for _, sig := range confusionSignals {
		re, err := compileKeyword(sig)
		if err != nil {
			return nil, fmt.Errorf("compiling confusion signal %q: %w", sig, err)
		}
		d.confusion = append(d.confusion, re)
	}

	return d, nil
}

// compileKeyword turns a keyword phrase into a case-insensitive matcher.
// Phrases made of word characters get word boundaries so "limit" does not
// match "unlimited"; phrases with symbols ("f(g(x))", "ln(") match as plain
// substrings because \b is meaningless next to punctuation.
func compileKeyword(kw string) (*regexp.Regexp, error) {
	if kw == "" {
		return nil, fmt.Errorf("empty keyword")
	}
	quoted := regexp.QuoteMeta(kw)
	pattern := "(?i)" + quoted
	if isWordChar(kw[0]) && isWordChar(kw[len(kw)-1]) {
		pattern = `(?i)\b` + quoted + `\b`
	}
	return regexp.Compile(pattern)
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// DetectTopics returns the IDs of every topic whose keyword patterns match
// the question text, sorted by ID. An empty result is a valid outcome: the
// question is topic-agnostic, not an error.
func (d *Detector) DetectTopics(text string) []string {
	var ids []string
	for _, m := range d.matchers {
		for _, re := range m.patterns {
			if re.MatchString(text) {
				ids = append(ids, m.id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// HasConfusionSignals reports whether the question contains phrasing that
// suggests the learner is lost rather than practicing.
func (d *Detector) HasConfusionSignals(text string) bool {
	for _, re := range d.confusion {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// FindGaps returns the union of transitive prerequisites of the detected
// topics minus the mastered set, deduplicated and ordered difficulty
// ascending, so the easiest thing to learn first comes first. Ties are
// broken by ID.
//
// No detected topics means no gaps. A detected topic whose prerequisites
// are all mastered contributes nothing.
func (d *Detector) FindGaps(detected []string, mastered map[string]bool) ([]topic.Topic, error) {
	seen := make(map[string]bool)
	for _, id := range detected {
		closure, err := d.graph.Transitive(id)
		if err != nil {
			return nil, err
		}
		for _, p := range closure {
			if !mastered[p] {
				seen[p] = true
			}
		}
	}

	gaps := make([]topic.Topic, 0, len(seen))
	for id := range seen {
		t, err := d.reg.Get(id)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, t)
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Difficulty != gaps[j].Difficulty {
			return gaps[i].Difficulty < gaps[j].Difficulty
		}
		return gaps[i].ID < gaps[j].ID
	})
	return gaps, nil
}

// Report is the result of analyzing one question against a learner's
// mastered set. It is derived per question and never persisted.
type Report struct {
	// DetectedTopics are the topic IDs matched in the question, sorted.
	DetectedTopics []string

	// Missing are the unmet prerequisites across all detected topics,
	// difficulty ascending.
	Missing []topic.Topic

	// NextTopic is the first missing prerequisite in topological order,
	// the single best thing to study next. Nil when there are no gaps.
	NextTopic *topic.Topic

	// Confused reports whether the question carried confusion phrasing.
	Confused bool
}

// HasGaps reports whether any prerequisite is missing.
func (r *Report) HasGaps() bool {
	return len(r.Missing) > 0
}

// Analyze runs the full per-question gap analysis: topic detection, gap
// computation, and next-topic suggestion. It is a total function; a
// question that matches nothing yields an empty report.
func (d *Detector) Analyze(question string, mastered map[string]bool) (*Report, error) {
	detected := d.DetectTopics(question)

	missing, err := d.FindGaps(detected, mastered)
	if err != nil {
		return nil, err
	}

	report := &Report{
		DetectedTopics: detected,
		Missing:        missing,
		Confused:       d.HasConfusionSignals(question),
	}

	if len(missing) > 0 {
		// Earliest missing topic in topological order: its own
		// prerequisites are either mastered or absent from the gap set.
		next := missing[0]
		best := d.graph.topoIndex[next.ID]
		for _, t := range missing[1:] {
			if idx := d.graph.topoIndex[t.ID]; idx < best {
				best = idx
				next = t
			}
		}
		report.NextTopic = &next
	}

	return report, nil
}

// FormatGapNotice renders a short study suggestion for a gap report,
// suitable for inclusion in a prompt or CLI output. Returns "" when there
// are no gaps.
func FormatGapNotice(r *Report) string {
	if r == nil || !r.HasGaps() {
		return ""
	}

	names := make([]string, len(r.Missing))
	for i, t := range r.Missing {
		names[i] = t.Name
	}

	var b strings.Builder
	b.WriteString("Missing prerequisites (easiest first): ")
	b.WriteString(strings.Join(names, ", "))
	if r.NextTopic != nil {
		b.WriteString(". Suggested next topic: ")
		b.WriteString(r.NextTopic.Name)
		b.WriteString(".")
	}
	return b.String()
}
