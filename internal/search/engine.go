// Package search answers keyword, vector, find-similar and hybrid queries over the
// corpus.
package search

import (
	"fmt"

	"github.com/kamusis/flowdex/internal/search/vectorspace"
)

// Engine answers queries against one stable artifact set. It is read-only and safe
// for concurrent use.
type Engine struct {
	space *vectorspace.Space // nil when no vector space is available
	docs  []Doc              // corpus order
	byKey map[string]Doc
}

// Options tune vector results.
type Options struct {
	// MinScore drops vector results below this similarity.
	MinScore float64
}

// NewEngine wires a vector space (may be nil) with the keyword corpus.
func NewEngine(space *vectorspace.Space, docs []Doc) *Engine {
	e := &Engine{space: space, docs: docs, byKey: make(map[string]Doc, len(docs))}
	for _, d := range docs {
		e.byKey[d.key()] = d
	}
	return e
}

// HasVectors reports whether vector search is available.
func (e *Engine) HasVectors() bool {
	return e.space != nil && e.space.Len() > 0
}

// Docs returns the keyword corpus in corpus order.
func (e *Engine) Docs() []Doc {
	return e.docs
}

// Keyword runs a keyword search.
func (e *Engine) Keyword(query string, limit int) Response {
	return Response{Mode: ModeKeyword, Results: KeywordSearch(e.docs, query, limit)}
}

// Vector ranks every document by cosine similarity to the query. Without a vector
// space it degrades to keyword search.
func (e *Engine) Vector(query string, k int, opts Options) (Response, error) {
	if !e.HasVectors() {
		return e.degraded(ModeVector, query, k), nil
	}
	results, err := e.rank(e.space.Transform(query), k, -1, opts)
	if err != nil {
		return Response{}, err
	}
	return Response{Mode: ModeVector, Results: results}, nil
}

// FindSimilar ranks documents by similarity to the document with the given id,
// excluding the document itself. An unknown id, or no vector space, yields no results.
func (e *Engine) FindSimilar(workflowID string, k int, opts Options) (Response, error) {
	resp := Response{Mode: ModeSimilar, Results: []Result{}}
	if !e.HasVectors() {
		resp.Degraded = true
		return resp, nil
	}
	row := e.space.IndexOf(workflowID)
	if row < 0 {
		return resp, nil
	}
	results, err := e.rank(e.space.Row(row), k, row, opts)
	if err != nil {
		return Response{}, err
	}
	resp.Results = results
	return resp, nil
}

// Hybrid runs vector search and keyword search with half the limit each, then merges
// them by identity with vector results first. The merged list is not re-ranked.
func (e *Engine) Hybrid(query string, limit int, opts Options) (Response, error) {
	if limit <= 0 {
		return Response{Mode: ModeHybrid, Results: []Result{}}, nil
	}
	if !e.HasVectors() {
		return e.degraded(ModeHybrid, query, limit), nil
	}
	half := max(1, limit/2)
	vec, err := e.Vector(query, half, opts)
	if err != nil {
		return Response{}, err
	}
	kw := KeywordSearch(e.docs, query, half)
	return Response{Mode: ModeHybrid, Results: mergeResults(limit, vec.Results, kw)}, nil
}

func (e *Engine) degraded(mode Mode, query string, limit int) Response {
	return Response{Mode: mode, Degraded: true, Results: KeywordSearch(e.docs, query, limit)}
}

// rank scores q against every row, skipping row skip, and returns the top k.
func (e *Engine) rank(q []float32, k, skip int, opts Options) ([]Result, error) {
	out := []Result{}
	if k <= 0 {
		return out, nil
	}
	sims, err := e.space.Similarities(q)
	if err != nil {
		return nil, fmt.Errorf("score vectors: %w", err)
	}
	for i, sim := range sims {
		if i == skip || sim < opts.MinScore {
			continue
		}
		out = append(out, e.vectorResult(i, sim))
	}
	SortResults(out)
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (e *Engine) vectorResult(row int, sim float64) Result {
	ent := e.space.Entries[row]
	d, ok := e.byKey[ent.WorkflowID]
	if !ok {
		d = Doc{
			WorkflowID:  ent.WorkflowID,
			Filename:    ent.Filename,
			Name:        ent.Name,
			Description: ent.Description,
			Categories:  ent.Categories,
		}
	}
	d.SearchText = ent.SearchText
	return d.result(sim, fmt.Sprintf("vector: cosine %.3f", sim))
}

func (d Doc) result(score float64, why string) Result {
	return Result{
		Score:       score,
		WorkflowID:  d.WorkflowID,
		Filename:    d.Filename,
		Name:        d.Name,
		Description: d.Description,
		Why:         why,
		Snippet:     vectorspace.Snippet(d.SearchText),
	}
}
