// Package importer ingests a directory tree of exported workflow JSON files into a
// library, applying exclude filtering and reporting duplicates and conflicts.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kamusis/flowdex/internal/library"
	"github.com/kamusis/flowdex/internal/metadata"
	"github.com/kamusis/flowdex/internal/store"
)

// DefaultExcludes are skipped unless the caller supplies its own list.
var DefaultExcludes = []string{".DS_Store", "Thumbs.db", "*.tmp", "*.bak", "*~", ".git/", "node_modules/"}

// Ingester stores one raw document.
type Ingester interface {
	Ingest(ctx context.Context, req library.Request) (library.IngestResult, error)
}

// ConflictPair records a name collision found during import.
type ConflictPair struct {
	Source   string // incoming file
	Filename string // stored document that holds the name
}

// Failure records a file that could not be ingested.
type Failure struct {
	Source string
	Err    error
}

// Options tune ImportDir.
type Options struct {
	Excludes []string
	Policy   store.ConflictPolicy
	// Now stamps scraped_at on new documents. Defaults to time.Now.
	Now func() time.Time
}

// Result is returned by ImportDir.
type Result struct {
	Conflicts []ConflictPair
	Failed    []Failure
	Imported  int // documents newly stored
	Skipped   int // identical duplicates skipped
	Warnings  int // lint findings across imported files

	// Collection-level counts (a "collection" is a top-level subdirectory of srcDir).
	CollectionsImported  int // collections with ≥1 newly stored document
	CollectionsSkipped   int // collections whose every document was a duplicate
	CollectionsConflicts int // collections with ≥1 conflict
}

// ImportDir ingests every *.json file under srcDir. Malformed files are recorded as
// failures and do not stop the walk; I/O faults and cancellation do.
func ImportDir(ctx context.Context, lib Ingester, srcDir string, opts Options) (*Result, error) {
	result := &Result{}
	if opts.Excludes == nil {
		opts.Excludes = DefaultExcludes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	scrapedAt := opts.Now().UTC().Format(time.RFC3339)

	collImported := map[string]bool{}
	collSkipped := map[string]bool{}
	collConflict := map[string]bool{}

	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if matchesExclude(rel, d.IsDir(), opts.Excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		collKey := strings.SplitN(rel, string(filepath.Separator), 2)[0]

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := lib.Ingest(ctx, library.Request{
			Raw:        raw,
			Provenance: metadata.Provenance{ScrapedAt: scrapedAt},
			Source:     path,
			Policy:     opts.Policy,
		})
		if err != nil {
			if errors.Is(err, store.ErrMalformed) {
				result.Failed = append(result.Failed, Failure{Source: path, Err: err})
				return nil
			}
			return err
		}

		result.Warnings += len(res.Warnings)
		switch res.Outcome {
		case library.OutcomeImported:
			result.Imported++
			collImported[collKey] = true
		case library.OutcomeSkipped:
			result.Skipped++
			collSkipped[collKey] = true
		case library.OutcomeConflict:
			result.Conflicts = append(result.Conflicts, ConflictPair{Source: path, Filename: res.Filename})
			collConflict[collKey] = true
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	// Categories can overlap (new + conflict in one collection).
	result.CollectionsImported = len(collImported)
	result.CollectionsConflicts = len(collConflict)
	for c := range collSkipped {
		if !collImported[c] && !collConflict[c] {
			result.CollectionsSkipped++
		}
	}

	return result, nil
}

// matchesExclude reports whether relPath matches any of the given glob patterns.
// Patterns ending in "/" only match directories.
func matchesExclude(relPath string, isDir bool, patterns []string) bool {
	name := filepath.Base(relPath)
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/") {
			if !isDir {
				continue
			}
			pattern = strings.TrimSuffix(pattern, "/")
		}
		// Match against the full relative path AND just the basename.
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}
