package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/calcrag/calcrag/internal/knowledge"
)

const (
	defaultChunkSize    = 512
	defaultChunkOverlap = 50
)

// separators in order of preference. Headings first, then paragraphs,
// lines, sentences and finally single words.
var separators = []string{"\n## ", "\n### ", "\n\n", "\n", ". ", " "}

var (
	displayMathRe = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	inlineMathRe  = regexp.MustCompile(`\$[^$]+?\$`)
)

// Chunker splits documents into overlapping chunks of roughly Size
// characters, preferring splits at structural boundaries and never
// splitting inside a LaTeX formula.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Zero size and overlap use the defaults of
// 512 and 50. The overlap must be smaller than the size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size == 0 {
		size = defaultChunkSize
	}
	if overlap == 0 {
		overlap = defaultChunkOverlap
	}
	if size < 0 || overlap < 0 {
		return nil, fmt.Errorf("ingest: chunk size %d and overlap %d must be positive", size, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("ingest: chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits one document. Chunk IDs are the document ID with the chunk
// index appended, so re-ingesting a document overwrites its old chunks.
func (c *Chunker) Chunk(doc Document) []knowledge.Chunk {
	var pieces []string
	if len(doc.Content) <= c.size {
		pieces = []string{doc.Content}
	} else {
		protected, formulas := protectMath(doc.Content)
		pieces = c.split(protected, separators)
		for i, p := range pieces {
			pieces[i] = restoreMath(p, formulas)
		}
		if c.overlap > 0 {
			pieces = c.addOverlap(pieces)
		}
	}

	chunks := make([]knowledge.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, knowledge.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, i),
			Content:    piece,
			DocumentID: doc.ID,
			ChunkIndex: i,
			Metadata:   doc.Metadata,
		})
	}
	return chunks
}

// ChunkAll flattens the chunks of several documents.
func (c *Chunker) ChunkAll(docs []Document) []knowledge.Chunk {
	var all []knowledge.Chunk
	for _, doc := range docs {
		all = append(all, c.Chunk(doc)...)
	}
	return all
}

// protectMath swaps LaTeX formulas for placeholders so the splitter
// cannot cut through them.
func protectMath(text string) (string, map[string]string) {
	formulas := make(map[string]string)
	n := 0
	swap := func(match string) string {
		placeholder := fmt.Sprintf("\x00MATH%d\x00", n)
		formulas[placeholder] = match
		n++
		return placeholder
	}
	text = displayMathRe.ReplaceAllStringFunc(text, swap)
	text = inlineMathRe.ReplaceAllStringFunc(text, swap)
	return text, formulas
}

func restoreMath(text string, formulas map[string]string) string {
	for placeholder, formula := range formulas {
		text = strings.ReplaceAll(text, placeholder, formula)
	}
	return text
}

// split cuts text into pieces of at most size characters, trying each
// separator in preference order and recursing with the weaker separators
// when a piece is still too large.
func (c *Chunker) split(text string, seps []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(seps) == 0 || len(text) <= c.size {
		return []string{text}
	}

	sep := seps[0]
	parts := strings.Split(text, sep)

	var pieces []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunk := current.String()
		current.Reset()
		if strings.TrimSpace(chunk) == "" {
			return
		}
		if len(chunk) > c.size {
			pieces = append(pieces, c.split(chunk, seps[1:])...)
			return
		}
		pieces = append(pieces, chunk)
	}

	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if current.Len()+len(part) > c.size {
			flush()
		}
		current.WriteString(part)
	}
	flush()
	return pieces
}

// addOverlap pads each piece with the tail of its predecessor and the
// head of its successor so context survives a chunk boundary.
func (c *Chunker) addOverlap(pieces []string) []string {
	if len(pieces) <= 1 {
		return pieces
	}
	out := make([]string, len(pieces))
	for i, piece := range pieces {
		var b strings.Builder
		if i > 0 {
			if tail := overlapTail(pieces[i-1], c.overlap); tail != "" {
				b.WriteString(tail)
				b.WriteString(" ")
			}
		}
		b.WriteString(piece)
		if i < len(pieces)-1 {
			if head := overlapHead(pieces[i+1], c.overlap); head != "" {
				b.WriteString(" ")
				b.WriteString(head)
			}
		}
		out[i] = b.String()
	}
	return out
}

// overlapTail returns at most n trailing bytes of s. The cut is moved
// forward onto a rune boundary and past any formula it would bisect, so
// the overlap margin is always valid UTF-8 and never half a formula.
func overlapTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	for _, span := range formulaSpans(s) {
		if start > span[0] && start < span[1] {
			start = span[1]
		}
	}
	if start >= len(s) {
		return ""
	}
	return strings.TrimLeft(s[start:], " ")
}

// overlapHead returns at most n leading bytes of s, with the cut moved
// back onto a rune boundary and out of any formula it would bisect.
func overlapHead(s string, n int) string {
	if len(s) <= n {
		return s
	}
	end := n
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	spans := formulaSpans(s)
	for i := len(spans) - 1; i >= 0; i-- {
		if end > spans[i][0] && end < spans[i][1] {
			end = spans[i][0]
		}
	}
	if end <= 0 {
		return ""
	}
	return strings.TrimRight(s[:end], " ")
}

// formulaSpans lists the byte ranges of LaTeX formulas in s, display
// formulas before inline ones so a cut inside $$...$$ is clamped to the
// outer delimiters.
func formulaSpans(s string) [][]int {
	spans := displayMathRe.FindAllStringIndex(s, -1)
	return append(spans, inlineMathRe.FindAllStringIndex(s, -1)...)
}
