package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/calcrag/calcrag/internal/knowledge"
	"github.com/calcrag/calcrag/internal/log"
)

// defaultExtensions are the file types the indexer ingests.
var defaultExtensions = map[string]bool{
	".md":  true,
	".txt": true,
	".pdf": true,
}

// ChunkStore is the slice of the knowledge store the indexer writes to.
type ChunkStore interface {
	AddBatch(ctx context.Context, chunks []knowledge.Chunk) (int, error)
	DeleteDocument(ctx context.Context, documentID string) (int, error)
}

// Result summarizes one indexing run.
type Result struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	Duration     time.Duration
}

// Indexer loads files, chunks them and writes the chunks to the store.
type Indexer struct {
	store      ChunkStore
	loader     *Loader
	chunker    *Chunker
	extensions map[string]bool
	logger     log.Logger
}

// NewIndexer creates an indexer. A nil extensions list means markdown,
// text and PDF files.
func NewIndexer(store ChunkStore, loader *Loader, chunker *Chunker, extensions []string, logger log.Logger) (*Indexer, error) {
	if store == nil || loader == nil || chunker == nil {
		return nil, fmt.Errorf("ingest: store, loader and chunker are required")
	}
	extMap := make(map[string]bool, len(defaultExtensions))
	if len(extensions) > 0 {
		for _, ext := range extensions {
			extMap[strings.ToLower(ext)] = true
		}
	} else {
		for ext := range defaultExtensions {
			extMap[ext] = true
		}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Indexer{
		store:      store,
		loader:     loader,
		chunker:    chunker,
		extensions: extMap,
		logger:     logger,
	}, nil
}

// AddFile ingests a single file: load, chunk, replace any chunks from a
// previous ingestion of the same file, then write. Returns the number of
// chunks written.
func (idx *Indexer) AddFile(ctx context.Context, path string) (int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !idx.extensions[ext] {
		return 0, fmt.Errorf("ingest: unsupported file type %q", ext)
	}

	doc, err := idx.loadByType(path, ext)
	if err != nil {
		return 0, err
	}
	chunks := idx.chunker.Chunk(doc)

	// Stale chunks from an earlier, longer version of the document would
	// otherwise survive the upsert.
	if _, err := idx.store.DeleteDocument(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("replace document %s: %w", doc.ID, err)
	}
	added, err := idx.store.AddBatch(ctx, chunks)
	if err != nil {
		return added, fmt.Errorf("add chunks for %s: %w", path, err)
	}
	idx.logger.Info("indexed file", "path", path, "chunks", added)
	return added, nil
}

// AddDirectory walks a directory tree and ingests every supported file,
// honoring a .gitignore at the root when present. Individual file
// failures are counted, not fatal.
func (idx *Indexer) AddDirectory(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingest: %s is not a directory", dir)
	}

	var gitIgnore *ignore.GitIgnore
	if _, err := os.Stat(filepath.Join(absDir, ".gitignore")); err == nil {
		// A malformed .gitignore should not block ingestion.
		gitIgnore, _ = ignore.CompileIgnoreFile(filepath.Join(absDir, ".gitignore"))
	}

	walkErr := filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			result.FilesSkipped++
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !idx.extensions[strings.ToLower(filepath.Ext(path))] {
			result.FilesSkipped++
			return nil
		}

		added, err := idx.AddFile(ctx, path)
		if err != nil {
			idx.logger.Warn("skipping file", "path", path, "error", err)
			result.FilesFailed++
			return nil
		}
		result.FilesAdded++
		result.ChunksAdded += added
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	result.Duration = time.Since(start)
	idx.logger.Info("indexed directory",
		"dir", dir,
		"added", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"chunks", result.ChunksAdded)
	return result, nil
}

// RemoveDocument deletes all chunks of one ingested file.
func (idx *Indexer) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	return idx.store.DeleteDocument(ctx, documentID)
}

func (idx *Indexer) loadByType(path, ext string) (Document, error) {
	if ext == ".pdf" {
		return idx.loader.LoadPDF(path)
	}
	return idx.loader.LoadFile(path)
}

// documentID derives a stable ID from the file path, so re-ingesting the
// same file updates rather than duplicates.
func documentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return "doc_" + hex.EncodeToString(sum[:16])
}
