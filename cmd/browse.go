package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/catalog"
)

var (
	flagBrowseCategory    string
	flagBrowseIntegration string
	flagBrowseTier        string
	flagBrowseComplexity  string
	flagBrowseQuery       string
	flagBrowseMinQuality  int
	flagBrowseMaxNodes    int
	flagBrowseLimit       int
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "List catalogued workflows, optionally filtered",
	Long: `List workflows from the published catalog, best quality first.

Without filters the category and integration overviews are printed. Filters
combine; unknown tags simply match nothing.

Example:
  flowdex browse --category email
  flowdex browse --integration slack --min-quality 60
  flowdex browse --tier excellent`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&flagBrowseCategory, "category", "", "Only workflows in this category")
	browseCmd.Flags().StringVar(&flagBrowseIntegration, "integration", "", "Only workflows using this integration")
	browseCmd.Flags().StringVar(&flagBrowseTier, "tier", "", "Only workflows in this quality tier: excellent, good, fair, basic")
	browseCmd.Flags().StringVar(&flagBrowseComplexity, "complexity", "", "Only workflows of this complexity: beginner, intermediate, advanced")
	browseCmd.Flags().StringVar(&flagBrowseQuery, "query", "", "Substring of name or description")
	browseCmd.Flags().IntVar(&flagBrowseMinQuality, "min-quality", -1, "Minimum quality score")
	browseCmd.Flags().IntVar(&flagBrowseMaxNodes, "max-nodes", -1, "Maximum node count")
	browseCmd.Flags().IntVar(&flagBrowseLimit, "limit", 0, "Maximum number of workflows to list (0 = all)")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	idx, err := loadIndexes(cmd, lib)
	if err != nil {
		return err
	}

	if flagBrowseTier != "" {
		printSection("Quality: " + flagBrowseTier)
		printSummaries(limitSummaries(idx.ByTier(flagBrowseTier)))
		return nil
	}

	f := catalog.Filter{
		Query:       flagBrowseQuery,
		Category:    flagBrowseCategory,
		Integration: flagBrowseIntegration,
		Complexity:  flagBrowseComplexity,
		Limit:       flagBrowseLimit,
	}
	if flagBrowseMinQuality >= 0 {
		f.MinQuality = &flagBrowseMinQuality
	}
	if flagBrowseMaxNodes >= 0 {
		f.MaxNodes = &flagBrowseMaxNodes
	}

	if f == (catalog.Filter{}) {
		printOverview(idx)
		return nil
	}

	entries := idx.Filter(f)
	printSection(fmt.Sprintf("Workflows (%d)", len(entries)))
	summaries := make([]catalog.Summary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, e.Summary())
	}
	printSummaries(summaries)
	return nil
}

func limitSummaries(s []catalog.Summary) []catalog.Summary {
	if flagBrowseLimit > 0 && len(s) > flagBrowseLimit {
		return s[:flagBrowseLimit]
	}
	return s
}

func printOverview(idx *catalog.Indexes) {
	printSection(fmt.Sprintf("Categories (%d)", idx.Categories.TotalCategories))
	for _, c := range catalog.SortedKeys(idx.Categories.Categories) {
		fmt.Printf("  %-20s %d\n", c, len(idx.Categories.Categories[c]))
	}
	printSection(fmt.Sprintf("Integrations (%d)", idx.Integrations.TotalIntegrations))
	for _, i := range catalog.SortedKeys(idx.Integrations.Integrations) {
		fmt.Printf("  %-20s %d\n", i, idx.Integrations.IntegrationStats[i])
	}
	printSection("Quality tiers")
	s := idx.Quality.Summary
	fmt.Printf("  excellent %d · good %d · fair %d · basic %d\n", s.Excellent, s.Good, s.Fair, s.Basic)
}

func printSummaries(items []catalog.Summary) {
	if len(items) == 0 {
		printMiss("", "no workflows match")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  SCORE\tCOMPLEXITY\tNODES\tNAME\tFILE")
	for _, s := range items {
		fmt.Fprintf(w, "  %d\t%s\t%d\t%s\t%s\n", s.QualityScore, s.Complexity, s.NodeCount, s.Name, s.Filename)
	}
	_ = w.Flush()
}
