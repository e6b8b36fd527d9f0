package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/config"
	"github.com/kamusis/flowdex/internal/importer"
	"github.com/kamusis/flowdex/internal/library"
)

var initCmd = &cobra.Command{
	Use:   "init [export-dir]",
	Short: "Bootstrap the flowdex library and optionally import exported workflows",
	Long: `Initialize flowdex at ~/.flowdex/.

  flowdex init                 create config, .env template and an empty library
  flowdex init ./n8n-export    also import every *.json workflow under ./n8n-export`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// ── 1. Resolve ~/.flowdex directory ───────────────────────────────────────
	dir, err := config.FlowdexDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	printOK("", fmt.Sprintf("flowdex directory ready: %s", dir))

	// ── 2. Write flowdex.yaml and .env if missing ─────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}
	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}

	// ── 3. Create the library ─────────────────────────────────────────────────
	_, lib, err := openLibrary()
	if err != nil {
		return err
	}
	if err := lib.Init(); err != nil {
		return err
	}
	printOK("", fmt.Sprintf("Library ready: %s", lib.Path()))

	// ── 4. Import existing exports ────────────────────────────────────────────
	if len(args) == 1 {
		if err := importExisting(cmdContext(cmd), lib, args[0]); err != nil {
			return err
		}
	}

	fmt.Println("\n✓  flowdex init complete. Run 'flowdex index' to build the search indexes.")
	return nil
}

func importExisting(ctx context.Context, lib *library.Library, src string) error {
	result, err := importer.ImportDir(ctx, lib, src, importer.Options{})
	if err != nil {
		return fmt.Errorf("import %s: %w", src, err)
	}
	printImportResult(src, result)
	return nil
}

// printImportResult prints the grouped outcome of one directory import.
func printImportResult(src string, r *importer.Result) {
	printSection("Import Workflows")

	printBullet("Imported:")
	printOK(src, fmt.Sprintf("%d workflow(s) imported, %d skipped, %d conflict(s)  (%d collection(s))",
		r.Imported, r.Skipped, len(r.Conflicts), r.CollectionsImported))
	if r.Warnings > 0 {
		printWarn(src, fmt.Sprintf("%d lint warning(s); run with --log-level debug for details", r.Warnings))
	}

	if len(r.Conflicts) > 0 {
		printBullet("Conflicts (name already taken, use --rename to keep both):")
		for _, c := range r.Conflicts {
			printWarn(c.Filename, c.Source)
		}
	}
	if len(r.Failed) > 0 {
		printBullet("Failed:")
		for _, f := range r.Failed {
			printErr(f.Source, f.Err.Error())
		}
	}
}
