package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/catalog"
	"github.com/kamusis/flowdex/internal/config"
	"github.com/kamusis/flowdex/internal/library"
	"github.com/kamusis/flowdex/internal/search/vectorspace"
	"github.com/kamusis/flowdex/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that flowdex's configuration, library and index artifacts are healthy.
Run this command when something seems wrong, or before filing a bug report.`,
	RunE: runDoctor,
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Automatically fix detected issues",
	Long: `Fix detected issues in the library.

Currently fixes:
  - Leftover temporary files and directories from interrupted writes

Run 'flowdex doctor' first to see what will be fixed.`,
	RunE: runDoctorFix,
}

func init() {
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("flowdex doctor")
	fmt.Println()

	// ── Check 1: config file ──────────────────────────────────────────────────
	fmt.Println("[ flowdex.yaml ]")
	cfgPath, _ := config.ConfigPath()
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		printWarn("", fmt.Sprintf("%s not found — defaults in use (run 'flowdex init')", cfgPath))
	}
	cfg, lib, loadErr := openLibrary()
	if loadErr != nil {
		failD("%v", loadErr)
	} else {
		printOK("", fmt.Sprintf("valid config — library at %s", cfg.LibraryPath))
		if cfg.Watch.Schedule != "" {
			printInfo("", fmt.Sprintf("scheduled rebuild: %s", cfg.Watch.Schedule))
		}
	}
	fmt.Println()

	// ── Check 2: .env ─────────────────────────────────────────────────────────
	fmt.Println("[ .env ]")
	if env, err := config.LoadDotEnv(); err != nil {
		failD("cannot parse .env: %v", err)
	} else {
		printOK("", fmt.Sprintf("%d key(s) defined", len(env)))
	}
	fmt.Println()

	if loadErr != nil {
		printWarn("", "remaining checks skipped (config not loaded)")
		return fmt.Errorf("doctor found problems")
	}

	// ── Check 3: documents ────────────────────────────────────────────────────
	fmt.Println("[ Workflows ]")
	docs, issues, err := lib.Store().LoadAll(cmdContext(cmd))
	switch {
	case err != nil:
		failD("cannot read %s: %v", lib.Store().Dir(), err)
	case len(docs) == 0 && len(issues) == 0:
		printWarn("", fmt.Sprintf("no workflows in %s (run 'flowdex ingest')", lib.Store().Dir()))
	default:
		withMeta := 0
		for _, d := range docs {
			if d.Metadata != nil {
				withMeta++
			}
		}
		printOK("", fmt.Sprintf("%d workflow(s), %d with stored metadata", len(docs), withMeta))
		if withMeta < len(docs) {
			printWarn("", fmt.Sprintf("%d workflow(s) without metadata (run 'flowdex enrich')", len(docs)-withMeta))
		}
		for _, is := range issues {
			failD("[%s] unreadable: %v", is.Filename, is.Err)
		}
	}
	fmt.Println()

	// ── Check 4: index artifacts ──────────────────────────────────────────────
	fmt.Println("[ Indexes ]")
	idx, err := catalog.Load(lib.CatalogPath())
	switch {
	case errors.Is(err, catalog.ErrNotBuilt):
		printMiss("catalog", "not built (run 'flowdex index')")
	case err != nil:
		failD("[catalog] %v", err)
	default:
		printOK("catalog", fmt.Sprintf("%d workflow(s), generated %s", idx.Manifest.TotalWorkflows, idx.Manifest.GeneratedAt))
		if idx.Manifest.TotalWorkflows != len(docs) {
			printWarn("catalog", "out of date with the stored workflows (run 'flowdex index')")
		}
	}
	space, err := vectorspace.Load(lib.VectorsPath())
	switch {
	case errors.Is(err, vectorspace.ErrNotBuilt):
		printMiss("vectors", "not built — search runs in keyword mode")
	case err != nil:
		failD("[vectors] %v", err)
	default:
		printOK("vectors", fmt.Sprintf("%d row(s), %d term(s), created %s", space.Len(), space.Manifest.Dim, space.Manifest.CreatedAt))
	}
	fmt.Println()

	// ── Check 5: leftovers from interrupted writes ────────────────────────────
	fmt.Println("[ Leftovers ]")
	if left := findLeftovers(lib.Path()); len(left) == 0 {
		printOK("", "no temporary files")
	} else {
		for _, l := range left {
			printWarn("", l)
		}
		fmt.Println("  Run 'flowdex doctor fix' to remove them.")
	}
	fmt.Println()

	if !allOK {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("✓  All checks passed.")
	return nil
}

func runDoctorFix(_ *cobra.Command, _ []string) error {
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	printSection("flowdex doctor fix")

	fmt.Println("\n[ Leftovers ]")
	left := findLeftovers(lib.Path())
	if len(left) == 0 {
		printOK("", "no temporary files found — nothing to fix")
		return nil
	}
	var failed int
	for _, rel := range left {
		if err := os.RemoveAll(filepath.Join(lib.Path(), rel)); err != nil {
			printErr("", fmt.Sprintf("cannot delete %s: %v", rel, err))
			failed++
		} else {
			printOK("", fmt.Sprintf("deleted %s", rel))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d item(s) could not be deleted", failed)
	}
	return nil
}

// findLeftovers lists temp files in the store and temp or backup directories in
// the indexes directory, relative to the library root.
func findLeftovers(root string) []string {
	var out []string
	if entries, err := os.ReadDir(filepath.Join(root, store.WorkflowsDir)); err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".tmp-") {
				out = append(out, filepath.Join(store.WorkflowsDir, e.Name()))
			}
		}
	}
	if entries, err := os.ReadDir(filepath.Join(root, library.IndexesDir)); err == nil {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() && (strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".bak")) {
				out = append(out, filepath.Join(library.IndexesDir, name))
			}
		}
	}
	return out
}
