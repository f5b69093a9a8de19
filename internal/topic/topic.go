// Package topic defines the curriculum catalog: the static set of topics a
// question can be mapped to, each with a difficulty rating and the topics
// that must be understood first.
//
// The Registry is built once at startup from the catalog and is immutable
// afterwards, so it is safe for concurrent use without locking. All
// referential validation (duplicate IDs, prerequisites pointing at topics
// that do not exist) happens at construction time; a bad catalog is a fatal
// configuration error, never a lazy per-request failure.
package topic

// Strand is the subject area a topic belongs to.
type Strand string

const (
	StrandAlgebra      Strand = "algebra"
	StrandFunctions    Strand = "functions"
	StrandTrig         Strand = "trigonometry"
	StrandExpLog       Strand = "exponentials-and-logarithms"
	StrandLimits       Strand = "limits"
	StrandDerivatives  Strand = "derivatives"
	StrandApplications Strand = "applications"
	StrandIntegration  Strand = "integration"
)

// AllStrands returns all strands in curriculum order.
func AllStrands() []Strand {
	return []Strand{
		StrandAlgebra,
		StrandFunctions,
		StrandTrig,
		StrandExpLog,
		StrandLimits,
		StrandDerivatives,
		StrandApplications,
		StrandIntegration,
	}
}

// StrandDisplayName returns a human-readable name for a strand.
func StrandDisplayName(s Strand) string {
	switch s {
	case StrandAlgebra:
		return "Algebra"
	case StrandFunctions:
		return "Functions"
	case StrandTrig:
		return "Trigonometry"
	case StrandExpLog:
		return "Exponentials & Logarithms"
	case StrandLimits:
		return "Limits"
	case StrandDerivatives:
		return "Derivatives"
	case StrandApplications:
		return "Applications of Derivatives"
	case StrandIntegration:
		return "Integration"
	default:
		return string(s)
	}
}

// MaxDifficulty is the top of the 1-based difficulty scale.
const MaxDifficulty = 5

// Topic is a single node in the curriculum. IDs are dot-namespaced
// ("derivatives.chain_rule") and globally unique within a Registry.
//
// Keywords are the phrases the gap detector matches against question text;
// matching is case-insensitive whole-phrase matching, so keywords should be
// lowercase.
type Topic struct {
	ID            string
	Name          string
	Description   string
	Strand        Strand
	Difficulty    int // 1 (foundational) .. 5 (hardest)
	Keywords      []string
	Prerequisites []string
}
