package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/calcrag/calcrag/internal/knowledge"
)

var excessNewlinesRe = regexp.MustCompile(`\n{3,}`)

// LoadPDF extracts the text of a PDF into a Document. Pages are joined
// with a page marker so the chunker keeps page context together. PDFs
// carry no front matter, so the topic is inferred from the path.
func (l *Loader) LoadPDF(path string) (Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var text strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Fprintf(&text, "\n\n--- Page %d ---\n\n%s", i, content)
	}

	cleaned := strings.TrimSpace(excessNewlinesRe.ReplaceAllString(text.String(), "\n\n"))
	if cleaned == "" {
		return Document{}, fmt.Errorf("%s: %w", path, errEmptyDocument)
	}

	difficulty := l.DefaultDifficulty
	if difficulty == 0 {
		difficulty = defaultDifficulty
	}
	return Document{
		ID:      documentID(path),
		Content: cleaned,
		Metadata: map[string]string{
			knowledge.MetaTopic:      InferTopic(path),
			knowledge.MetaDifficulty: strconv.Itoa(difficulty),
			knowledge.MetaSourceFile: filepath.Base(path),
			knowledge.MetaSourceType: knowledge.SourceTypePDF,
			"pages":                  strconv.Itoa(pages),
		},
	}, nil
}
