package tutor

import (
	"fmt"
	"strings"

	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/retrieval"
)

// SystemPrompt guides every tier model. The app wires it into each
// generator so escalation never changes the tutor's voice.
const SystemPrompt = `You are an expert calculus tutor helping high school students.

Your role:
- Provide clear, step-by-step explanations
- Use simple language while being mathematically precise
- Build on the student's existing knowledge
- Point out prerequisite concepts when they are needed

When answering:
1. Answer ONLY the student's specific question, not other problems that appear in the context
2. Use the provided context from the knowledge base as reference material
3. If the student is missing prerequisites, briefly address them first
4. Keep answers focused and concise
5. Use LaTeX notation for math (e.g. $f(x)$, $$\lim_{x \to a}$$)

Your goal is to help the student understand, not just to hand over answers.`

// buildContext renders retrieved passages for the model. Prerequisite
// passages are labeled so the model knows they are background, not the
// subject of the question.
func buildContext(results []knowledge.Result) string {
	if len(results) == 0 {
		return "No relevant content found in the knowledge base."
	}
	var b strings.Builder
	for i, res := range results {
		topicID := res.Chunk.Metadata[knowledge.MetaTopic]
		if topicID == "" {
			topicID = "unknown"
		}
		difficulty := res.Chunk.Metadata[knowledge.MetaDifficulty]
		if difficulty == "" {
			difficulty = "?"
		}
		kind := "Main"
		if res.Chunk.Metadata[retrieval.MetaIsPrerequisite] == "true" {
			kind = "Prerequisite"
		}
		fmt.Fprintf(&b, "[Source %d - %s - Topic: %s, Difficulty: %s]\n%s\n\n",
			i+1, kind, topicID, difficulty, res.Chunk.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildPrompt assembles the user prompt: context, an optional note about
// the learner's prerequisite gaps, then the question.
func buildPrompt(question string, results []knowledge.Result, report *prereq.Report) string {
	var b strings.Builder
	b.WriteString("Context from knowledge base:\n")
	b.WriteString(buildContext(results))
	b.WriteString("\n\n")

	if report != nil && report.HasGaps() {
		b.WriteString("Learner background: ")
		b.WriteString(prereq.FormatGapNotice(report))
		if report.Confused {
			b.WriteString(" The student sounds confused, so start from the basics.")
		}
		b.WriteString("\n\n")
	}

	b.WriteString("Student Question: ")
	b.WriteString(question)
	b.WriteString("\n\nProvide a clear, helpful answer based on the context above. If the context does not contain enough information, acknowledge this and give what guidance you can.")
	return b.String()
}
