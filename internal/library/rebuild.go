package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kamusis/flowdex/internal/artifact"
	"github.com/kamusis/flowdex/internal/catalog"
	"github.com/kamusis/flowdex/internal/metadata"
	"github.com/kamusis/flowdex/internal/search/vectorspace"
	"github.com/kamusis/flowdex/internal/store"
	"github.com/kamusis/flowdex/internal/tracing"
	"github.com/kamusis/flowdex/internal/workflow"
)

// ErrLocked is returned when another process holds the rebuild lock past the timeout.
var ErrLocked = errors.New("another rebuild is in progress")

// Status is the outcome of building one artifact.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
)

// ArtifactReport describes one artifact of a rebuild.
type ArtifactReport struct {
	Status Status `json:"status"`
	Path   string `json:"path"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// Report summarizes a rebuild.
type Report struct {
	Documents int            `json:"documents"`
	Extracted int            `json:"extracted"`
	Catalog   ArtifactReport `json:"catalog"`
	Vectors   ArtifactReport `json:"vectors"`
	Issues    []store.Issue  `json:"-"`
	Duration  time.Duration  `json:"duration"`
	// Shared is set when this call joined a rebuild already running in-process.
	Shared bool `json:"shared"`
}

// OK reports whether no artifact failed.
func (r *Report) OK() bool {
	return r.Catalog.Status != StatusFailed && r.Vectors.Status != StatusFailed
}

// Rebuild regenerates the catalog and the vector space from the stored documents and
// publishes them. Concurrent calls in one process share a single run; other processes
// are excluded by a lock file. One artifact failing never blocks the other.
func (l *Library) Rebuild(ctx context.Context) (*Report, error) {
	v, err, shared := l.rebuild.Do("rebuild", func() (any, error) {
		var rep *Report
		err := l.withLock(ctx, func() error {
			var err error
			rep, err = l.runRebuild(ctx)
			return err
		})
		return rep, err
	})
	if err != nil {
		return nil, err
	}
	rep := *v.(*Report)
	rep.Shared = shared
	return &rep, nil
}

func (l *Library) runRebuild(ctx context.Context) (rep *Report, err error) {
	ctx, span := tracing.Start(ctx, "library.rebuild", attribute.String("library", l.root))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	docs, issues, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	for _, is := range issues {
		l.log.Warn("skipping unreadable document", "filename", is.Filename, "error", is.Err)
	}

	rep = &Report{Documents: len(docs), Issues: issues}
	rep.Extracted = refreshMetadata(docs)
	span.SetAttributes(attribute.Int("documents", len(docs)))

	if err := os.MkdirAll(filepath.Join(l.root, IndexesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create indexes dir: %w", err)
	}

	rep.Catalog = l.publishCatalog(ctx, docs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep.Vectors = l.publishVectors(ctx, docs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.cache.Flush()
	rep.Duration = time.Since(start)
	l.log.Info("rebuild finished",
		"documents", rep.Documents,
		"catalog", rep.Catalog.Status,
		"vectors", rep.Vectors.Status,
		"duration", rep.Duration)
	return rep, nil
}

// refreshMetadata re-derives every document's metadata in memory from its current
// content, keeping stored provenance. It returns how many documents had none stored.
func refreshMetadata(docs []*workflow.Document) int {
	n := 0
	for _, d := range docs {
		if d.Metadata == nil {
			n++
		}
		m := metadata.Enrich(d, d.Metadata)
		d.Metadata = &m
	}
	return n
}

func (l *Library) publishCatalog(ctx context.Context, docs []*workflow.Document) (rep ArtifactReport) {
	rep.Path = l.CatalogPath()
	_, span := tracing.Start(ctx, "catalog.build")
	var err error
	defer func() { tracing.End(span, err) }()

	entries := make([]catalog.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, catalog.EntryFromMetadata(d.Filename, d.Metadata))
	}
	idx := catalog.Build(entries, l.now())

	err = l.publish(rep.Path, func(dir string) error { return catalog.Write(dir, idx) })
	if err != nil {
		l.log.Error("catalog build failed", "error", err)
		return ArtifactReport{Status: StatusFailed, Path: rep.Path, Error: err.Error()}
	}
	rep.Status = StatusOK
	rep.Count = idx.Manifest.TotalWorkflows
	return rep
}

func (l *Library) publishVectors(ctx context.Context, docs []*workflow.Document) (rep ArtifactReport) {
	rep.Path = l.VectorsPath()
	ctx, span := tracing.Start(ctx, "vectorspace.build")
	var err error
	defer func() { tracing.End(span, err) }()

	space, err := vectorspace.Build(ctx, VectorEntries(docs), l.params, l.now())
	if errors.Is(err, vectorspace.ErrEmptyVocabulary) {
		// Without terms there is nothing to search; drop any stale space so readers degrade.
		err = artifact.Retire(rep.Path)
		if err != nil {
			return ArtifactReport{Status: StatusFailed, Path: rep.Path, Error: err.Error()}
		}
		l.log.Warn("vector space unavailable", "reason", vectorspace.ErrEmptyVocabulary)
		return ArtifactReport{Status: StatusUnavailable, Path: rep.Path, Error: vectorspace.ErrEmptyVocabulary.Error()}
	}
	if err == nil {
		err = l.publish(rep.Path, func(dir string) error { return vectorspace.Write(dir, space) })
	}
	if err != nil {
		l.log.Error("vector space build failed", "error", err)
		return ArtifactReport{Status: StatusFailed, Path: rep.Path, Error: err.Error()}
	}
	span.SetAttributes(attribute.Int("dim", space.Manifest.Dim))
	rep.Status = StatusOK
	rep.Count = space.Len()
	return rep
}

// publish writes an artifact into a fresh sibling temp dir and swaps it into place.
func (l *Library) publish(dest string, write func(dir string) error) error {
	tmp, err := os.MkdirTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	if err := write(tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}
	if err := artifact.Swap(tmp, dest); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("publish %s: %w", filepath.Base(dest), err)
	}
	return nil
}

// VectorEntries returns the vector space rows for docs, in corpus order.
func VectorEntries(docs []*workflow.Document) []vectorspace.Entry {
	out := make([]vectorspace.Entry, 0, len(docs))
	for _, d := range docs {
		w := d.Content.View()
		e := vectorspace.Entry{
			WorkflowID: d.ID(),
			Filename:   d.Filename,
			Name:       w.Name,
			Categories: []string{},
			SearchText: vectorspace.SearchText(w, d.Metadata),
		}
		if d.Metadata != nil {
			e.Name = d.Metadata.Name
			e.Description = d.Metadata.Description
			e.Categories = append(e.Categories, d.Metadata.Categories...)
		}
		out = append(out, e)
	}
	return out
}

// withLock runs fn holding the cross-process writer lock. It polls until the
// configured timeout; a zero timeout tries once.
func (l *Library) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Join(l.root, IndexesDir), 0o755); err != nil {
		return fmt.Errorf("create indexes dir: %w", err)
	}
	fl := flock.New(l.lockPath())
	deadline := time.Now().Add(l.lockTimeout)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return fmt.Errorf("cannot acquire rebuild lock: %w", err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w (lock: %s)", ErrLocked, l.lockPath())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	defer func() { _ = fl.Unlock() }()
	return fn()
}
