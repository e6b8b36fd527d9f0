package library

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kamusis/flowdex/internal/metadata"
	"github.com/kamusis/flowdex/internal/store"
	"github.com/kamusis/flowdex/internal/workflow"
)

// Outcome is the result kind of one ingest.
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeConflict Outcome = "conflict"
)

// Request is one raw document to ingest.
type Request struct {
	Raw        []byte
	Provenance metadata.Provenance
	// Source names where Raw came from, e.g. a file path. Its base name is the fallback
	// filename when the document has no name.
	Source string
	Policy store.ConflictPolicy
}

// IngestResult reports what happened to one document.
type IngestResult struct {
	Source     string
	Filename   string
	WorkflowID string
	Outcome    Outcome
	// DuplicateOf is the stored document with identical content, for skipped results.
	DuplicateOf string
	Warnings    []string
}

// Ingest extracts metadata for a raw document and stores it. A document whose original
// content is already stored is skipped. A filename collision follows the request's
// conflict policy. Only I/O faults and non-object input are errors.
func (l *Library) Ingest(ctx context.Context, req Request) (IngestResult, error) {
	res := IngestResult{Source: req.Source}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	warnings, err := store.Lint(req.Raw)
	if err != nil {
		return res, err
	}
	res.Warnings = warnings
	for _, w := range warnings {
		l.log.Debug("lint warning", "source", req.Source, "warning", w)
	}

	content, prev, err := workflow.Parse(req.Raw)
	if err != nil {
		return res, fmt.Errorf("%w: %v", store.ErrMalformed, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seen, err := l.loadFingerprints(ctx)
	if err != nil {
		return res, err
	}
	fp := content.Fingerprint()
	if existing, ok := seen[fp]; ok {
		res.Outcome = OutcomeSkipped
		res.Filename = existing
		res.WorkflowID = workflow.ID(existing)
		res.DuplicateOf = existing
		return res, nil
	}

	doc := &workflow.Document{
		Filename: filenameFor(content.View().Name, req.Source, req.Provenance.SourceURL),
		Content:  content,
	}
	// Provenance carried in the document wins; the request fills what it leaves empty.
	meta := metadata.Extract(doc, metadata.ProvenanceOf(prev).Or(req.Provenance))
	doc.Metadata = &meta

	if err := l.store.Create(doc, req.Policy); err != nil {
		if errors.Is(err, store.ErrConflict) {
			res.Outcome = OutcomeConflict
			res.Filename = doc.Filename
			res.WorkflowID = doc.ID()
			return res, nil
		}
		return res, err
	}
	seen[fp] = doc.Filename

	res.Outcome = OutcomeImported
	res.Filename = doc.Filename
	res.WorkflowID = doc.ID()
	l.log.Debug("ingested document", "filename", doc.Filename, "quality", meta.QualityScore)
	return res, nil
}

// Remove deletes a stored document. Published indexes keep listing it until the next
// rebuild.
func (l *Library) Remove(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Delete(filename); err != nil {
		return err
	}
	for fp, name := range l.fingerprints {
		if name == filename {
			delete(l.fingerprints, fp)
		}
	}
	l.log.Debug("removed document", "filename", filename)
	return nil
}

// loadFingerprints indexes stored content once per Library. Callers hold l.mu.
func (l *Library) loadFingerprints(ctx context.Context) (map[string]string, error) {
	if l.fingerprints != nil {
		return l.fingerprints, nil
	}
	docs, _, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(docs))
	for _, d := range docs {
		if _, ok := m[d.Content.Fingerprint()]; !ok {
			m[d.Content.Fingerprint()] = d.Filename
		}
	}
	l.fingerprints = m
	return m, nil
}

// filenameFor picks the document name, then the source file's base name, then a name
// derived from the source URL.
func filenameFor(name, source, sourceURL string) string {
	if strings.TrimSpace(name) == "" && source != "" {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if strings.TrimSpace(name) == "" && sourceURL != "" {
		name = metadata.NameFromURL(sourceURL)
	}
	return store.FilenameFor(name)
}

// EnrichReport summarizes an enrichment pass.
type EnrichReport struct {
	Updated int
	Issues  []store.Issue
}

// Enrich re-derives the metadata of every stored document and saves it back. Source
// URL, scrape time and usage count are kept from the stored record.
func (l *Library) Enrich(ctx context.Context) (EnrichReport, error) {
	var rep EnrichReport
	err := l.withLock(ctx, func() error {
		docs, issues, err := l.store.LoadAll(ctx)
		if err != nil {
			return err
		}
		rep.Issues = issues
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return err
			}
			meta := metadata.Enrich(doc, doc.Metadata)
			doc.Metadata = &meta
			if err := l.store.Save(doc); err != nil {
				return err
			}
			rep.Updated++
		}
		return nil
	})
	if err != nil {
		return rep, err
	}
	l.log.Info("enriched documents", "updated", rep.Updated, "issues", len(rep.Issues))
	return rep, nil
}
