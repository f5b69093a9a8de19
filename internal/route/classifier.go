// Package route classifies questions by complexity and routes generation
// requests to a tier-appropriate model, escalating one tier upward when a
// model fails or times out.
package route

import (
	"fmt"
	"regexp"
	"strings"
)

// Tier is the complexity band a question falls into. Higher tiers map to
// more capable (and more expensive) models.
type Tier int

const (
	TierSimple Tier = iota + 1
	TierModerate
	TierComplex
)

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierSimple:
		return "simple"
	case TierModerate:
		return "moderate"
	case TierComplex:
		return "complex"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the three defined tiers.
func (t Tier) Valid() bool {
	return t >= TierSimple && t <= TierComplex
}

// defaultComplexPhrases indicate proof or derivation work, or techniques
// that need multi-step reasoning.
var defaultComplexPhrases = []string{
	"prove",
	"proof",
	"derive",
	"derivation",
	"why does",
	"explain why",
	"rigorous",
	"justify",
	"show that",
	"demonstrate",
	"integration by parts",
	"u-substitution",
	"chain rule",
	"implicit differentiation",
	"related rates",
	"optimization",
	"taylor series",
	"fourier",
}

// defaultSimplePhrases indicate definitional or single-rule questions.
var defaultSimplePhrases = []string{
	"what is",
	"define",
	"definition",
	"basic",
	"simple",
	"calculate",
	"find the derivative of",
	"power rule",
	"constant rule",
}

// mathNotation matches symbolic math that plain prose does not carry.
var mathNotation = regexp.MustCompile(`[∫∑∏√±∞αβγθλπ]|\\frac|\\int|\\sum`)

// Scoring weights and length/notation adjustments. A complex phrase
// outweighs a simple one so mixed questions lean upward.
const (
	complexPhraseWeight = 3
	simplePhraseWeight  = 2

	longQuestionWords  = 30
	shortQuestionWords = 10
)

// ClassifierConfig holds the tunable parts of classification. The
// thresholds partition the score:
//
//	score < SimpleThreshold                      -> TierSimple
//	SimpleThreshold <= score <= ComplexThreshold -> TierModerate
//	score > ComplexThreshold                     -> TierComplex
//
// The lower bound on MODERATE is closed: a score exactly at
// SimpleThreshold classifies as MODERATE. With the default phrase lists
// and thresholds, a question with no signals scores 0 and lands in
// MODERATE.
type ClassifierConfig struct {
	// SimpleThreshold is the exclusive upper bound of the SIMPLE band.
	SimpleThreshold int

	// ComplexThreshold is the inclusive upper bound of the MODERATE band.
	ComplexThreshold int

	// ComplexPhrases and SimplePhrases override the built-in phrase
	// lists when non-empty.
	ComplexPhrases []string
	SimplePhrases  []string
}

// DefaultClassifierConfig returns the thresholds the default phrase
// weights were calibrated against.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SimpleThreshold:  0,
		ComplexThreshold: 1,
	}
}

// Classifier assigns a complexity tier to question text. Classification
// is a pure function of the text: same input, same tier, no error path.
type Classifier struct {
	cfg     ClassifierConfig
	complex []*regexp.Regexp
	simple  []*regexp.Regexp
}

// NewClassifier compiles the phrase lists into case-insensitive matchers.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if cfg.ComplexThreshold < cfg.SimpleThreshold {
		return nil, fmt.Errorf("complex threshold %d below simple threshold %d",
			cfg.ComplexThreshold, cfg.SimpleThreshold)
	}

	complexPhrases := cfg.ComplexPhrases
	if len(complexPhrases) == 0 {
		complexPhrases = defaultComplexPhrases
	}
	simplePhrases := cfg.SimplePhrases
	if len(simplePhrases) == 0 {
		simplePhrases = defaultSimplePhrases
	}

	c := &Classifier{cfg: cfg}
	var err error
	if c.complex, err = compilePhrases(complexPhrases); err != nil {
		return nil, fmt.Errorf("complex phrases: %w", err)
	}
	if c.simple, err = compilePhrases(simplePhrases); err != nil {
		return nil, fmt.Errorf("simple phrases: %w", err)
	}
	return c, nil
}

func compilePhrases(phrases []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		if p == "" {
			return nil, fmt.Errorf("empty phrase")
		}
		pattern := "(?i)" + regexp.QuoteMeta(p)
		if isWordByte(p[0]) && isWordByte(p[len(p)-1]) {
			pattern = `(?i)\b` + regexp.QuoteMeta(p) + `\b`
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling phrase %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// Classify maps question text to a tier. It never fails: text with no
// signals scores 0, which falls in the MODERATE band under the default
// thresholds.
func (c *Classifier) Classify(text string) Tier {
	score := c.Score(text)
	switch {
	case score < c.cfg.SimpleThreshold:
		return TierSimple
	case score > c.cfg.ComplexThreshold:
		return TierComplex
	default:
		return TierModerate
	}
}

// Score computes the raw complexity score. Exposed so callers can log the
// score alongside the tier and so threshold calibration can be tested.
func (c *Classifier) Score(text string) int {
	score := 0
	for _, re := range c.complex {
		if re.MatchString(text) {
			score += complexPhraseWeight
		}
	}
	for _, re := range c.simple {
		if re.MatchString(text) {
			score -= simplePhraseWeight
		}
	}

	words := len(strings.Fields(text))
	switch {
	case words > longQuestionWords:
		score++
	case words < shortQuestionWords:
		score--
	}

	symbols := len(mathNotation.FindAllString(text, -1))
	switch {
	case symbols > 3:
		score += 2
	case symbols > 1:
		score++
	}

	return score
}
