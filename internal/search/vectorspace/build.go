// Package vectorspace fits a lexical TF-IDF vector space over the corpus and persists it
// as a model file, a float32 matrix and a row lookup table.
package vectorspace

import (
	"context"
	"math"
	"sort"
	"time"
)

// Build fits the model over entries (in corpus order, SearchText filled) and returns
// the space with one L2-normalized row per entry.
//
// The space is always rebuilt wholesale. It is the caller's responsibility to apply an
// atomic swap strategy when publishing it.
func Build(ctx context.Context, entries []Entry, p Params, now time.Time) (*Space, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyVocabulary
	}

	counts := make([]map[string]int, len(entries))
	df := map[string]int{}
	tf := map[string]int{}
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := map[string]int{}
		for _, f := range analyze(e.SearchText, p) {
			c[f]++
		}
		for f, n := range c {
			df[f]++
			tf[f] += n
		}
		counts[i] = c
	}

	vocab := selectVocabulary(df, tf, len(entries), p)
	if len(vocab) == 0 {
		return nil, ErrEmptyVocabulary
	}

	n := float64(len(entries))
	idf := make([]float64, len(vocab))
	for i, term := range vocab {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	s := &Space{
		Manifest: Manifest{
			IndexVersion: IndexVersion,
			CreatedAt:    now.UTC().Format(time.RFC3339),
			ModelID:      ModelID,
			Dim:          len(vocab),
			Normalize:    true,
			Params:       p,
			VectorFile:   VectorFile,
			EntriesFile:  EntriesFile,
			Vocabulary:   vocab,
			IDF:          idf,
		},
		Entries: entries,
		Vectors: make([]float32, 0, len(entries)*len(vocab)),
	}
	s.indexColumns()

	for _, c := range counts {
		s.Vectors = append(s.Vectors, s.weigh(c)...)
	}
	return s, nil
}

// selectVocabulary prunes terms by document frequency, keeps the MaxFeatures terms
// with the highest corpus frequency (ties alphabetical) and returns them in
// alphabetical order.
func selectVocabulary(df, tf map[string]int, nDocs int, p Params) []string {
	maxDoc := p.MaxDF
	if maxDoc <= 1 {
		maxDoc *= float64(nDocs)
	}
	minDoc := max(p.MinDF, 1)

	vocab := make([]string, 0, len(df))
	for term, d := range df {
		if d >= minDoc && float64(d) <= maxDoc {
			vocab = append(vocab, term)
		}
	}
	sort.Strings(vocab)

	if p.MaxFeatures > 0 && len(vocab) > p.MaxFeatures {
		sort.SliceStable(vocab, func(i, j int) bool { return tf[vocab[i]] > tf[vocab[j]] })
		vocab = vocab[:p.MaxFeatures]
		sort.Strings(vocab)
	}
	return vocab
}

// Transform projects text into the space. Out-of-vocabulary features are dropped; a
// text with no known feature yields the zero vector.
func (s *Space) Transform(text string) []float32 {
	c := map[string]int{}
	for _, f := range analyze(text, s.Manifest.Params) {
		c[f]++
	}
	return s.weigh(c)
}

func (s *Space) weigh(counts map[string]int) []float32 {
	row := make([]float32, s.Manifest.Dim)
	for term, n := range counts {
		if col, ok := s.columns[term]; ok {
			row[col] = float32(float64(n) * s.Manifest.IDF[col])
		}
	}
	return NormalizeL2(row)
}
