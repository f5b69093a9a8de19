// Package ingest loads course material from disk, splits it into chunks
// sized for embedding and writes them to the knowledge store. Markdown and
// text files may carry YAML front matter; PDFs get their text extracted
// page by page.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/calcrag/calcrag/internal/knowledge"
)

const defaultDifficulty = 3

// Document is one source file before chunking.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// frontMatter is the YAML header recognized at the top of markdown and
// text files.
type frontMatter struct {
	Topic      string `yaml:"topic"`
	Difficulty int    `yaml:"difficulty"`
	SourceFile string `yaml:"source_file"`
}

var frontMatterRe = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n(.*)\z`)

// splitFrontMatter separates the YAML header from the body. Content
// without a header comes back unchanged with a zero frontMatter.
func splitFrontMatter(content string) (frontMatter, string, error) {
	m := frontMatterRe.FindStringSubmatch(content)
	if m == nil {
		return frontMatter{}, content, nil
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
		return frontMatter{}, "", fmt.Errorf("parse front matter: %w", err)
	}
	return fm, m[2], nil
}

// InferTopic derives a topic ID from a file path: the path segments after
// any knowledge-root prefix, joined with dots. "content/limits/intro.md"
// becomes "limits.intro". Paths with no usable segments map to "unknown".
func InferTopic(path string) string {
	trimmed := strings.TrimSuffix(filepath.ToSlash(path), filepath.Ext(path))
	parts := strings.Split(trimmed, "/")

	// Strip leading directories that name the corpus rather than a topic.
	for len(parts) > 0 && isCorpusDir(parts[0]) {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ".")
}

func isCorpusDir(segment string) bool {
	switch segment {
	case "", ".", "..", "content", "knowledge", "calculus", "precalculus":
		return true
	}
	return false
}

// Loader reads markdown and text files into Documents.
type Loader struct {
	// DefaultDifficulty is used when front matter gives none. Zero means 3.
	DefaultDifficulty int
}

// LoadFile reads one file, parses front matter and fills in metadata that
// the header omitted.
func (l *Loader) LoadFile(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return l.load(path, string(raw))
}

func (l *Loader) load(path, content string) (Document, error) {
	fm, body, err := splitFrontMatter(content)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if strings.TrimSpace(body) == "" {
		return Document{}, fmt.Errorf("%s: %w", path, errEmptyDocument)
	}

	topicID := fm.Topic
	if topicID == "" {
		topicID = InferTopic(path)
	}
	difficulty := fm.Difficulty
	if difficulty == 0 {
		difficulty = l.DefaultDifficulty
		if difficulty == 0 {
			difficulty = defaultDifficulty
		}
	}
	sourceFile := fm.SourceFile
	if sourceFile == "" {
		sourceFile = filepath.Base(path)
	}
	sourceType := knowledge.SourceTypeText
	if strings.EqualFold(filepath.Ext(path), ".md") {
		sourceType = knowledge.SourceTypeMarkdown
	}

	return Document{
		ID:      documentID(path),
		Content: body,
		Metadata: map[string]string{
			knowledge.MetaTopic:      topicID,
			knowledge.MetaDifficulty: strconv.Itoa(difficulty),
			knowledge.MetaSourceFile: sourceFile,
			knowledge.MetaSourceType: sourceType,
		},
	}, nil
}

var errEmptyDocument = errors.New("document has no content")
