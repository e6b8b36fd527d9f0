package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/library"
	"github.com/kamusis/flowdex/internal/search"
	"github.com/kamusis/flowdex/internal/store"
	"github.com/kamusis/flowdex/internal/workflow"
)

var (
	flagSearchKeyword  bool
	flagSearchSemantic bool
	flagSearchHybrid   bool
	flagSearchK        int
	flagSearchMinScore float64
	flagSearchDebug    bool
	flagSearchJSON     bool
	flagSearchIndex    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search workflows by keyword or vector similarity",
	Long: `Search the library. The default is hybrid: half the results from the vector
space, half from keyword matching, merged without re-ranking. Without a built
vector space the search degrades to keyword matching.`,
	Args: cobra.MinimumNArgs(0),
	RunE: runSearch,
}

var similarCmd = &cobra.Command{
	Use:   "similar <workflow-id|filename>",
	Short: "Find workflows similar to a stored workflow",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	searchCmd.Flags().BoolVar(&flagSearchKeyword, "keyword", false, "Force keyword search only")
	searchCmd.Flags().BoolVar(&flagSearchSemantic, "semantic", false, "Force vector search only")
	searchCmd.Flags().BoolVar(&flagSearchHybrid, "hybrid", false, "Merge vector and keyword results (default)")
	searchCmd.Flags().BoolVar(&flagSearchIndex, "index", false, "Rebuild the indexes before searching")
	searchCmd.MarkFlagsMutuallyExclusive("keyword", "semantic", "hybrid")
	for _, c := range []*cobra.Command{searchCmd, similarCmd} {
		c.Flags().IntVar(&flagSearchK, "k", 0, "Number of results to show (default from config)")
		c.Flags().Float64Var(&flagSearchMinScore, "min-score", -1, "Minimum cosine similarity score to include (vector results only)")
		c.Flags().BoolVar(&flagSearchDebug, "debug", false, "Print debug information")
		c.Flags().BoolVar(&flagSearchJSON, "json", false, "Print results as JSON")
	}
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, lib, err := openLibrary()
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	if flagSearchIndex {
		if err := rebuildAndReport(ctx, lib); err != nil {
			return err
		}
	}
	if len(args) == 0 {
		if flagSearchIndex {
			return nil
		}
		return cmd.Help()
	}

	q := library.Query{
		Mode:     search.ModeHybrid,
		Text:     strings.Join(args, " "),
		Limit:    resolveLimit(cfg.Search.DefaultLimit),
		MinScore: resolveMinScore(cfg.Search.MinScore),
	}
	switch {
	case flagSearchKeyword:
		q.Mode = search.ModeKeyword
	case flagSearchSemantic:
		q.Mode = search.ModeVector
	}

	resp, err := lib.Search(ctx, q)
	if err != nil {
		return err
	}
	return printResponse(fmt.Sprintf("flowdex search %q", q.Text), resp)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg, lib, err := openLibrary()
	if err != nil {
		return err
	}
	id := resolveWorkflowID(lib, args[0])
	resp, err := lib.Search(cmdContext(cmd), library.Query{
		Mode:       search.ModeSimilar,
		WorkflowID: id,
		Limit:      resolveLimit(cfg.Search.DefaultLimit),
		MinScore:   resolveMinScore(cfg.Search.MinScore),
	})
	if err != nil {
		return err
	}
	return printResponse(fmt.Sprintf("flowdex similar %s", args[0]), resp)
}

func resolveLimit(def int) int {
	if flagSearchK > 0 {
		return flagSearchK
	}
	return def
}

func resolveMinScore(def float64) float64 {
	if flagSearchMinScore >= 0 {
		return flagSearchMinScore
	}
	return def
}

// resolveWorkflowID accepts a stored filename (with or without .json) or a
// workflow id.
func resolveWorkflowID(lib *library.Library, arg string) string {
	for _, name := range []string{arg, arg + ".json", store.FilenameFor(arg)} {
		if strings.HasSuffix(name, ".json") && lib.Store().Exists(name) {
			return workflow.ID(name)
		}
	}
	return arg
}

func printResponse(title string, resp search.Response) error {
	if flagSearchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Printf("\n%s\n\n", title)
	if resp.Degraded {
		printWarn("", "vector space unavailable — showing keyword results (run 'flowdex index')")
	}
	if flagSearchDebug {
		printInfo("", fmt.Sprintf("mode: %s", resp.Mode))
	}
	fmt.Printf("Results (%d found):\n", len(resp.Results))
	if len(resp.Results) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, r := range resp.Results {
		score := ""
		if strings.HasPrefix(r.Why, "vector") {
			score = fmt.Sprintf("[%.3f]", r.Score)
		}
		name := r.Name
		if name == "" {
			name = r.Filename
		}
		fmt.Fprintf(w, "  %d.\t%s\t%s\t(%s)\n", r.Rank, score, name, r.Filename)
		if d := strings.TrimSpace(r.Description); d != "" {
			fmt.Fprintf(w, "  - %s\n", d)
		}
		if flagSearchDebug {
			fmt.Fprintf(w, "    why: %s\n", r.Why)
			if r.Snippet != "" {
				fmt.Fprintf(w, "    text: %s\n", r.Snippet)
			}
		}
	}
	return w.Flush()
}
