package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index documents into the knowledge base",
	Long: `Index markdown, text and PDF files into the knowledge base.

Directories are walked recursively. Files matched by a .gitignore in the
directory are skipped. Re-ingesting a file replaces its previous chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(_ *cobra.Command, args []string) error {
	ctx, cancel, a, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = a.Close() }()

	var total int
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if info.IsDir() {
			res, err := a.Indexer.AddDirectory(ctx, path)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", path, err)
			}
			fmt.Printf("%s: %d files indexed, %d skipped, %d failed, %d chunks (%s)\n",
				path, res.FilesAdded, res.FilesSkipped, res.FilesFailed, res.ChunksAdded, res.Duration.Round(time.Millisecond))
			total += res.ChunksAdded
			continue
		}

		n, err := a.Indexer.AddFile(ctx, path)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		fmt.Printf("%s: %d chunks\n", path, n)
		total += n
	}

	fmt.Printf("done: %d chunks total\n", total)
	return nil
}
