package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/kamusis/flowdex/internal/library"
	"github.com/kamusis/flowdex/internal/log"
	"github.com/kamusis/flowdex/internal/watcher"
)

var flagWatchNoInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the indexes whenever stored workflows change",
	Long: `Watch the library's workflow directory and rebuild the indexes after changes
settle (watch.debounce). When watch.schedule holds a cron expression, a rebuild
also runs on that schedule. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&flagWatchNoInitial, "no-initial", false, "Skip the rebuild at startup")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, lib, err := openLibrary()
	if err != nil {
		return err
	}
	if err := lib.Init(); err != nil {
		return err
	}
	logger := log.WithModule("watch")

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wcfg := watcher.DefaultConfig(lib.Store().Dir())
	if cfg.Watch.Debounce > 0 {
		wcfg.Debounce = cfg.Watch.Debounce
	}
	w, err := watcher.New(wcfg)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", wcfg.Dir, err)
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer w.Stop()

	ticks := make(chan struct{}, 1)
	if cfg.Watch.Schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.Watch.Schedule, func() {
			select {
			case ticks <- struct{}{}:
			default:
			}
		}); err != nil {
			return fmt.Errorf("invalid watch.schedule: %w", err)
		}
		c.Start()
		defer c.Stop()
		printInfo("", fmt.Sprintf("scheduled rebuild: %s", cfg.Watch.Schedule))
	}

	printInfo("", fmt.Sprintf("watching %s (debounce %s)", wcfg.Dir, wcfg.Debounce))
	if !flagWatchNoInitial {
		watchRebuild(ctx, lib, logger, "startup")
	}

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped.")
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			watchRebuild(ctx, lib, logger, "change")
		case <-ticks:
			watchRebuild(ctx, lib, logger, "schedule")
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// watchRebuild runs one rebuild and keeps watching on failure.
func watchRebuild(ctx context.Context, lib *library.Library, logger *slog.Logger, trigger string) {
	logger.Info("rebuild triggered", "trigger", trigger)
	if err := rebuildAndReport(ctx, lib); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn("rebuild failed", "trigger", trigger, "error", err)
	}
}
