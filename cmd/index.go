package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/library"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the catalog and vector indexes from the stored workflows",
	Long: `Rebuild every index artifact from the documents in the library:

  indexes/catalog/   manifest, categories, integrations, quality tiers
  indexes/vectors/   TF-IDF model, vectors and row table

Metadata is re-derived in memory from each document's current content; stored
source URL, scrape time and usage count are kept. Each artifact is written to a
temporary directory and swapped into place, and readers retry a load that
overlapped a swap, so every load sees one whole publication. Only one rebuild
runs at a time.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Re-extract metadata for every stored workflow and save it",
	Long: `Re-derive categories, integrations, complexity and quality for every stored
document and write the result back into its _metadata block. Source URL,
scrape time and usage count are preserved.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

var flagEnrichIndex bool

func init() {
	enrichCmd.Flags().BoolVar(&flagEnrichIndex, "index", false, "Rebuild the indexes after enriching")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(enrichCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	return rebuildAndReport(cmdContext(cmd), lib)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	printSection("Enrich")
	rep, err := lib.Enrich(ctx)
	if err != nil {
		return err
	}
	printOK("", fmt.Sprintf("%d workflow(s) updated", rep.Updated))
	for _, is := range rep.Issues {
		printWarn(is.Filename, is.Err.Error())
	}

	if flagEnrichIndex {
		return rebuildAndReport(ctx, lib)
	}
	return nil
}

// rebuildAndReport runs a rebuild and prints its per-artifact outcome.
func rebuildAndReport(ctx context.Context, lib *library.Library) error {
	printSection("Index")
	rep, err := lib.Rebuild(ctx)
	if err != nil {
		if errors.Is(err, library.ErrLocked) {
			printWarn("", err.Error())
		}
		return err
	}
	printArtifact("catalog", rep.Catalog, "workflow(s)")
	printArtifact("vectors", rep.Vectors, "row(s)")
	if rep.Extracted > 0 {
		printInfo("", fmt.Sprintf("%d workflow(s) have no stored metadata (run 'flowdex enrich' to persist it)", rep.Extracted))
	}
	for _, is := range rep.Issues {
		printWarn(is.Filename, fmt.Sprintf("skipped: %v", is.Err))
	}
	printInfo("", fmt.Sprintf("%d document(s) in %s", rep.Documents, rep.Duration.Round(time.Millisecond)))

	if !rep.OK() {
		return fmt.Errorf("rebuild finished with failures")
	}
	return nil
}

func printArtifact(name string, a library.ArtifactReport, unit string) {
	switch a.Status {
	case library.StatusOK:
		printOK(name, fmt.Sprintf("%d %s → %s", a.Count, unit, a.Path))
	case library.StatusUnavailable:
		printSkip(name, fmt.Sprintf("unavailable: %s", a.Error))
	default:
		printErr(name, fmt.Sprintf("failed: %s", a.Error))
	}
}
