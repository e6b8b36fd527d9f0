package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/catalog"
	"github.com/kamusis/flowdex/internal/library"
	"github.com/kamusis/flowdex/internal/metadata"
	"github.com/kamusis/flowdex/internal/store"
	"github.com/kamusis/flowdex/internal/workflow"
)

var flagInspectFresh bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <filename|workflow-id|name>",
	Short: "Show metadata and structure of a stored workflow",
	Long: `Display a formatted summary of a stored workflow: categories, integrations,
complexity, the six quality checks and the node list.

The argument can be a stored filename, a workflow id, or a name fragment that
is matched case-insensitively against stored filenames.

Example:
  flowdex inspect Email_automation.json
  flowdex inspect "email automation"`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&flagInspectFresh, "fresh", false, "Re-extract metadata instead of showing the stored record")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	names, err := resolveFilenames(lib, args[0])
	if err != nil {
		return err
	}
	for i, name := range names {
		if i > 0 {
			fmt.Println(strings.Repeat("─", 50))
		}
		doc, err := lib.Store().Get(name)
		if err != nil {
			printErr(name, err.Error())
			continue
		}
		printInspect(lib, doc)
	}
	return nil
}

// resolveFilenames finds stored documents matching arg: exact filename, then
// workflow id, then a case-insensitive substring of the filename.
func resolveFilenames(lib *library.Library, arg string) ([]string, error) {
	names, err := lib.Store().List()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == arg || n == arg+".json" || workflow.ID(n) == arg {
			return []string{n}, nil
		}
	}
	lower := strings.ToLower(store.SanitizeFilename(arg))
	var matches []string
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			matches = append(matches, n)
		}
	}
	if len(matches) > 0 {
		return matches, nil
	}
	return nil, fmt.Errorf("workflow %q not found in library.\nTip: run 'flowdex browse' to list workflows.", arg)
}

func printInspect(lib *library.Library, doc *workflow.Document) {
	m := doc.Metadata
	stale := ""
	if m == nil || flagInspectFresh {
		fresh := metadata.Enrich(doc, m)
		m = &fresh
		stale = " (extracted, not stored)"
	}
	w := doc.Content.View()

	fmt.Printf("📦 Workflow: %s%s\n", m.Name, stale)
	fmt.Printf("ID:           %s\n", doc.ID())
	if m.Description != "" {
		fmt.Printf("Summary:      %s\n", m.Description)
	}
	fmt.Printf("Categories:   %s\n", joinOrNone(m.Categories))
	fmt.Printf("Integrations: %s\n", joinOrNone(m.Integrations))
	fmt.Printf("Complexity:   %s\n", m.Complexity)
	fmt.Printf("Quality:      %d/100 (%s)\n", m.QualityScore, catalog.TierFor(m.QualityScore))
	fmt.Printf("Graph:        %d node(s), %d connection source(s), %d edge(s)\n", m.NodeCount, m.ConnectionCount, w.EdgeCount())
	fmt.Printf("Trigger:      %s\n", yesNo(m.HasTrigger))
	fmt.Printf("Credentials:  %s\n", yesNo(m.HasCredentials))
	if m.PopularityScore > 0 {
		fmt.Printf("Popularity:   %d (used %d times)\n", m.PopularityScore, m.UsedCount)
	}

	if c := m.QualityChecks; c != nil {
		fmt.Println("\nQuality checks:")
		checks := []struct {
			name   string
			ok     bool
			weight int
		}{
			{"documentation", c.Documentation, metadata.WeightDocumentation},
			{"credential hygiene", c.CredentialHygiene, metadata.WeightCredentialHygiene},
			{"error handling", c.ErrorHandling, metadata.WeightErrorHandling},
			{"organization", c.Organization, metadata.WeightOrganization},
			{"modern integrations", c.ModernIntegrations, metadata.WeightModernIntegrations},
			{"parameterization", c.Parameterization, metadata.WeightParameterization},
		}
		for _, ch := range checks {
			mark := "✗"
			if ch.ok {
				mark = "✓"
			}
			fmt.Printf("  %s  %-20s %2d\n", mark, ch.name, ch.weight)
		}
	}

	if len(w.Nodes) > 0 {
		fmt.Println("\nNodes:")
		for _, n := range w.Nodes {
			fmt.Printf("  - %s (%s)\n", n.Name, n.Type)
		}
	}
	if m.SourceURL != "" {
		fmt.Printf("\nSource:   %s\n", m.SourceURL)
	}
	if m.ScrapedAt != "" {
		fmt.Printf("Acquired: %s\n", m.ScrapedAt)
	}
	fmt.Printf("\nPath: %s\n", filepath.Join(lib.Store().Dir(), doc.Filename))
}

func joinOrNone(s []string) string {
	if len(s) == 0 {
		return "(none)"
	}
	return strings.Join(s, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// loadIndexes returns the published catalog with a hint when it is missing.
func loadIndexes(cmd *cobra.Command, lib *library.Library) (*catalog.Indexes, error) {
	idx, err := lib.Indexes(cmdContext(cmd))
	if errors.Is(err, catalog.ErrNotBuilt) {
		return nil, fmt.Errorf("catalog not built yet.\nRun 'flowdex index' first.")
	}
	return idx, err
}
