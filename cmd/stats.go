package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var flagStatsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics from the published catalog",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&flagStatsJSON, "json", false, "Print statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	idx, err := loadIndexes(cmd, lib)
	if err != nil {
		return err
	}
	st := idx.Stats()

	if flagStatsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Println("=== Library Statistics ===")
	fmt.Printf("\n  Workflows:      %d\n", st.TotalWorkflows)
	fmt.Printf("  Categories:     %d\n", st.TotalCategories)
	fmt.Printf("  Integrations:   %d\n", st.TotalIntegrations)
	fmt.Printf("  Avg quality:    %.2f\n", st.AverageQualityScore)
	fmt.Printf("  Avg node count: %.2f\n", st.AverageNodeCount)
	fmt.Printf("  Last updated:   %s\n", st.LastUpdated)

	fmt.Println("\n● Quality distribution:")
	q := st.QualityDistribution
	fmt.Printf("  excellent %d · good %d · fair %d · basic %d\n", q.Excellent, q.Good, q.Fair, q.Basic)

	fmt.Println("\n● Complexity distribution:")
	levels := make([]string, 0, len(st.ComplexityDistribution))
	for c := range st.ComplexityDistribution {
		levels = append(levels, c)
	}
	sort.Strings(levels)
	for _, c := range levels {
		fmt.Printf("  %-14s %d\n", c, st.ComplexityDistribution[c])
	}
	return nil
}
