package cmd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/config"
	"github.com/kamusis/flowdex/internal/library"
	"github.com/kamusis/flowdex/internal/log"
	"github.com/kamusis/flowdex/internal/tracing"
)

var (
	flagLogLevel string
	flagTrace    bool
	flagLibrary  string

	traceProvider *tracing.Provider
)

var rootCmd = &cobra.Command{
	Use:          "flowdex",
	Short:        "flowdex — catalog and search automation workflows",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `flowdex extracts metadata from n8n-style workflow JSON documents, builds
cross-reference indexes over the collection and answers keyword and
similarity queries. The library lives at ~/.flowdex/library/ by default.`,
	PersistentPreRunE:  setupAmbient,
	PersistentPostRunE: shutdownAmbient,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "Print OpenTelemetry spans to stderr")
	rootCmd.PersistentFlags().StringVar(&flagLibrary, "library", "", "Library directory (overrides library_path)")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var loadConfig = sync.OnceValues(func() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagLibrary != "" {
		if cfg.LibraryPath, err = config.ExpandPath(flagLibrary); err != nil {
			return nil, err
		}
	}
	return cfg, nil
})

// setupAmbient configures logging and tracing before any command runs. A broken
// config is reported by the commands that need it, not here.
func setupAmbient(_ *cobra.Command, _ []string) error {
	cfg, cfgErr := loadConfig()

	level := flagLogLevel
	if level == "" && cfgErr == nil {
		level = cfg.LogLevel
	}
	log.Setup(level)

	tc := tracing.Config{}
	if cfgErr == nil {
		tc = cfg.Tracing
	}
	if flagTrace {
		tc.Enabled = true
		tc.Exporter = tracing.ExporterStdout
	}
	p, err := tracing.NewProvider(tc)
	if err != nil {
		return fmt.Errorf("cannot set up tracing: %w", err)
	}
	traceProvider = p
	return nil
}

func shutdownAmbient(_ *cobra.Command, _ []string) error {
	if traceProvider == nil {
		return nil
	}
	return traceProvider.Shutdown(context.Background())
}

// openLibrary loads the config and opens the configured library.
func openLibrary() (*config.Config, *library.Library, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load config: %w\nRun 'flowdex init' first.", err)
	}
	return cfg, library.Open(cfg), nil
}
