package library

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kamusis/flowdex/internal/catalog"
	"github.com/kamusis/flowdex/internal/search"
	"github.com/kamusis/flowdex/internal/search/vectorspace"
	"github.com/kamusis/flowdex/internal/tracing"
	"github.com/kamusis/flowdex/internal/workflow"
)

// Indexes returns the published catalog, or catalog.ErrNotBuilt.
func (l *Library) Indexes(ctx context.Context) (*catalog.Indexes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := "indexes:" + l.generation()
	if v, ok := l.cache.Get(key); ok {
		if idx, ok := v.(*catalog.Indexes); ok {
			return idx, nil
		}
	}
	idx, err := catalog.Load(l.CatalogPath())
	if err != nil {
		return nil, err
	}
	l.cache.SetDefault(key, idx)
	return idx, nil
}

// Space returns the published vector space, or vectorspace.ErrNotBuilt.
func (l *Library) Space(ctx context.Context) (*vectorspace.Space, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := "vectors:" + l.generation()
	if v, ok := l.cache.Get(key); ok {
		if s, ok := v.(*vectorspace.Space); ok {
			return s, nil
		}
	}
	s, err := vectorspace.Load(l.VectorsPath())
	if err != nil {
		return nil, err
	}
	l.cache.SetDefault(key, s)
	return s, nil
}

// Engine returns a search engine over the published artifacts. Without a vector space
// the engine runs degraded; without a catalog the keyword corpus is read from the
// store.
func (l *Library) Engine(ctx context.Context) (*search.Engine, error) {
	key := "engine:" + l.generation()
	if v, ok := l.cache.Get(key); ok {
		if e, ok := v.(*search.Engine); ok {
			return e, nil
		}
	}

	space, err := l.Space(ctx)
	switch {
	case errors.Is(err, vectorspace.ErrNotBuilt):
		space = nil
	case err != nil:
		return nil, fmt.Errorf("load vector space: %w", err)
	}

	docs, err := l.keywordDocs(ctx)
	if err != nil {
		return nil, err
	}
	if space != nil {
		text := make(map[string]string, space.Len())
		for _, e := range space.Entries {
			text[e.WorkflowID] = e.SearchText
		}
		for i := range docs {
			if docs[i].SearchText == "" {
				docs[i].SearchText = text[docs[i].WorkflowID]
			}
		}
	}

	e := search.NewEngine(space, docs)
	l.cache.SetDefault(key, e)
	return e, nil
}

// keywordDocs returns the keyword corpus in corpus order (filenames ascending).
func (l *Library) keywordDocs(ctx context.Context) ([]search.Doc, error) {
	idx, err := l.Indexes(ctx)
	if err == nil {
		entries := append([]catalog.Entry(nil), idx.Manifest.Workflows...)
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
		docs := make([]search.Doc, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, search.Doc{
				WorkflowID:   e.WorkflowID,
				Filename:     e.Filename,
				Name:         e.Name,
				Description:  e.Description,
				Categories:   e.Categories,
				Integrations: e.Integrations,
			})
		}
		return docs, nil
	}
	if !errors.Is(err, catalog.ErrNotBuilt) {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	stored, issues, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, is := range issues {
		l.log.Debug("skipping unreadable document", "filename", is.Filename, "error", is.Err)
	}
	refreshMetadata(stored)
	return DocsFrom(stored), nil
}

// DocsFrom converts documents with metadata into the keyword corpus.
func DocsFrom(docs []*workflow.Document) []search.Doc {
	out := make([]search.Doc, 0, len(docs))
	for _, d := range docs {
		w := d.Content.View()
		sd := search.Doc{
			WorkflowID: d.ID(),
			Filename:   d.Filename,
			Name:       w.Name,
			SearchText: vectorspace.SearchText(w, d.Metadata),
		}
		if m := d.Metadata; m != nil {
			sd.Name = m.Name
			sd.Description = m.Description
			sd.Categories = m.Categories
			sd.Integrations = m.Integrations
		}
		out = append(out, sd)
	}
	return out
}

// Query is one search request.
type Query struct {
	Mode search.Mode
	// Text is the query for keyword, vector and hybrid modes.
	Text string
	// WorkflowID is the reference document for similar mode.
	WorkflowID string
	Limit      int
	MinScore   float64
}

// Search runs q against the published artifacts.
func (l *Library) Search(ctx context.Context, q Query) (resp search.Response, err error) {
	ctx, span := tracing.Start(ctx, "search.query",
		attribute.String("mode", string(q.Mode)),
		attribute.Int("limit", q.Limit))
	defer func() { tracing.End(span, err) }()

	e, err := l.Engine(ctx)
	if err != nil {
		return search.Response{}, err
	}
	opts := search.Options{MinScore: q.MinScore}
	switch q.Mode {
	case search.ModeKeyword:
		resp = e.Keyword(q.Text, q.Limit)
	case search.ModeVector:
		resp, err = e.Vector(q.Text, q.Limit, opts)
	case search.ModeSimilar:
		resp, err = e.FindSimilar(q.WorkflowID, q.Limit, opts)
	case search.ModeHybrid, "":
		resp, err = e.Hybrid(q.Text, q.Limit, opts)
	default:
		return search.Response{}, fmt.Errorf("unknown search mode %q", q.Mode)
	}
	if err != nil {
		return search.Response{}, err
	}
	span.SetAttributes(attribute.Int("results", len(resp.Results)), attribute.Bool("degraded", resp.Degraded))
	return resp, nil
}
