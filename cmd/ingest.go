package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/importer"
	"github.com/kamusis/flowdex/internal/library"
	"github.com/kamusis/flowdex/internal/metadata"
	"github.com/kamusis/flowdex/internal/store"
)

var (
	flagIngestRename    bool
	flagIngestExcludes  []string
	flagIngestIndex     bool
	flagIngestSourceURL string
	flagIngestUsedCount int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir|->...",
	Short: "Extract metadata and store workflow documents in the library",
	Long: `Ingest one or more workflow JSON documents. Directories are walked for
*.json files; "-" reads a single document from stdin.

Identical documents already in the library are skipped. A different document
with a taken name is reported as a conflict unless --rename is given.

Example:
  flowdex ingest ./exports
  curl -s https://example.com/flow.json | flowdex ingest - --source-url https://example.com/flow`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&flagIngestRename, "rename", false, "Store name collisions as <name>_2.json instead of reporting a conflict")
	ingestCmd.Flags().StringSliceVar(&flagIngestExcludes, "exclude", nil, "Glob patterns to skip when walking directories")
	ingestCmd.Flags().BoolVar(&flagIngestIndex, "index", false, "Rebuild the indexes after ingesting")
	ingestCmd.Flags().StringVar(&flagIngestSourceURL, "source-url", "", "Source URL recorded for single-document ingest")
	ingestCmd.Flags().IntVar(&flagIngestUsedCount, "used-count", 0, "Upstream usage count recorded for single-document ingest")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	if err := lib.Init(); err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	policy := store.ConflictFail
	if flagIngestRename {
		policy = store.ConflictRename
	}

	var failed int
	for _, arg := range args {
		if arg != "-" {
			if info, err := os.Stat(arg); err == nil && info.IsDir() {
				r, err := importer.ImportDir(ctx, lib, arg, importer.Options{Excludes: flagIngestExcludes, Policy: policy})
				if err != nil {
					return fmt.Errorf("import %s: %w", arg, err)
				}
				printImportResult(arg, r)
				failed += len(r.Failed)
				continue
			}
		}
		if err := ingestOne(ctx, lib, arg, policy); err != nil {
			printErr(arg, err.Error())
			failed++
		}
	}

	if flagIngestIndex {
		if err := rebuildAndReport(ctx, lib); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d document(s) could not be ingested", failed)
	}
	return nil
}

func ingestOne(ctx context.Context, lib *library.Library, arg string, policy store.ConflictPolicy) error {
	var (
		raw    []byte
		err    error
		source = arg
	)
	if arg == "-" {
		raw, err = io.ReadAll(os.Stdin)
		source = ""
	} else {
		raw, err = os.ReadFile(arg)
	}
	if err != nil {
		return err
	}

	res, err := lib.Ingest(ctx, library.Request{
		Raw: raw,
		Provenance: metadata.Provenance{
			SourceURL: flagIngestSourceURL,
			UsedCount: flagIngestUsedCount,
		},
		Source: source,
		Policy: policy,
	})
	if err != nil {
		return err
	}
	name := arg
	if arg == "-" {
		name = "stdin"
	}
	switch res.Outcome {
	case library.OutcomeImported:
		printOK(name, fmt.Sprintf("stored as %s", res.Filename))
	case library.OutcomeSkipped:
		printSkip(name, fmt.Sprintf("identical to %s", res.DuplicateOf))
	case library.OutcomeConflict:
		printWarn(name, fmt.Sprintf("%s already exists with different content (use --rename)", res.Filename))
	}
	for _, w := range res.Warnings {
		printWarn(name, w)
	}
	return nil
}

// cmdContext returns the command's context, or Background when none is set.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
