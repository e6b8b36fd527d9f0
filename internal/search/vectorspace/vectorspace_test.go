package vectorspace

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kamusis/flowdex/internal/workflow"
)

var fitTime = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func entries(texts ...string) []Entry {
	out := make([]Entry, 0, len(texts))
	for i, t := range texts {
		name := string(rune('a'+i)) + ".json"
		out = append(out, Entry{WorkflowID: workflow.ID(name), Filename: name, Name: name, SearchText: t})
	}
	return out
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"send", "slack", "n8n", "nodes", "base", "http_request", "café"},
		tokens("Send a Slack! n8n-nodes-base.http_request x Café"))
}

func TestAnalyze_StopWordsBeforeBigrams(t *testing.T) {
	got := analyze("send the email to slack", DefaultParams())
	assert.Equal(t, []string{"send", "email", "slack", "send email", "email slack"}, got)
}

func TestBuild_EmailAutomation(t *testing.T) {
	s, err := Build(context.Background(), entries("email automation gmail", "payment processing stripe"), DefaultParams(), fitTime)
	require.NoError(t, err)

	q := s.Transform("email automation")
	sims, err := s.Similarities(q)
	require.NoError(t, err)
	assert.Greater(t, sims[0], 0.0)
	assert.Greater(t, sims[0], sims[1])
}

func TestBuild_MaxDFPrunesCommonTerms(t *testing.T) {
	s, err := Build(context.Background(), entries("slack alert", "slack digest", "slack report"), DefaultParams(), fitTime)
	require.NoError(t, err)
	assert.NotContains(t, s.Manifest.Vocabulary, "slack")
	assert.Contains(t, s.Manifest.Vocabulary, "alert")
	assert.Contains(t, s.Manifest.Vocabulary, "slack alert")
}

func TestBuild_VocabularyOrderAndIDF(t *testing.T) {
	s, err := Build(context.Background(), entries("beta alpha", "gamma alpha", "delta"), DefaultParams(), fitTime)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta", "beta alpha", "delta", "gamma", "gamma alpha"}, s.Manifest.Vocabulary)
	col := -1
	for i, v := range s.Manifest.Vocabulary {
		if v == "alpha" {
			col = i
		}
	}
	require.GreaterOrEqual(t, col, 0)
	assert.InDelta(t, math.Log(4.0/3.0)+1, s.Manifest.IDF[col], 1e-12)
	assert.Equal(t, len(s.Manifest.Vocabulary), s.Manifest.Dim)
}

func TestBuild_MaxFeatures(t *testing.T) {
	p := DefaultParams()
	p.MaxFeatures = 2
	p.NgramMax = 1
	s, err := Build(context.Background(), entries("zeta zeta zeta alpha", "beta beta omega", "kappa"), p, fitTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "zeta"}, s.Manifest.Vocabulary)
}

func TestBuild_EmptyVocabulary(t *testing.T) {
	_, err := Build(context.Background(), entries("email automation"), DefaultParams(), fitTime)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = Build(context.Background(), nil, DefaultParams(), fitTime)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = Build(context.Background(), entries("the and", "of to"), DefaultParams(), fitTime)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestTransform_OutOfVocabulary(t *testing.T) {
	s, err := Build(context.Background(), entries("email automation", "payment stripe"), DefaultParams(), fitTime)
	require.NoError(t, err)
	q := s.Transform("completely unknown words")
	for _, x := range q {
		assert.Zero(t, x)
	}
	sims, err := s.Similarities(q)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, sims)
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	s, err := Build(context.Background(), entries("email automation gmail", "payment processing stripe", "slack alerts"), DefaultParams(), fitTime)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Write(dir, s))
	for _, f := range []string{ModelFile, VectorFile, EntriesFile} {
		_, err := os.Stat(filepath.Join(dir, f))
		require.NoError(t, err, f)
	}

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, s.Manifest, loaded.Manifest)
	assert.Equal(t, s.Entries, loaded.Entries)
	assert.Equal(t, s.Vectors, loaded.Vectors)
	assert.Equal(t, s.Transform("email"), loaded.Transform("email"))
	assert.Equal(t, 1, loaded.IndexOf(s.Entries[1].WorkflowID))
	assert.Equal(t, -1, loaded.IndexOf("missing"))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotBuilt)

	dir := t.TempDir()
	m := Manifest{Dim: 2, Vocabulary: []string{"a", "b"}, IDF: []float64{1, 1}}
	mb, _ := json.Marshal(m)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), mb, 0o644))
	line, _ := json.Marshal(Entry{WorkflowID: "x"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, EntriesFile), append(line, '\n'), 0o644))

	vf, err := os.Create(filepath.Join(dir, VectorFile))
	require.NoError(t, err)
	require.NoError(t, binary.Write(vf, binary.LittleEndian, []float32{1, 0, 0}))
	require.NoError(t, vf.Close())

	_, err = Load(dir)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "size mismatch"))
}

func TestCosine(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = Cosine([]float32{0, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.Zero(t, sim)

	_, err = Cosine([]float32{1}, []float32{1, 0})
	assert.ErrorIs(t, err, ErrVectorLengthMismatch)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short"))
	long := strings.Repeat("é", 250)
	assert.Equal(t, strings.Repeat("é", 200)+"...", Snippet(long))
}

func TestSearchText(t *testing.T) {
	w := workflow.Workflow{
		Name:  "Digest",
		Nodes: []workflow.Node{{Name: "Gmail", Type: "n8n-nodes-base.gmail"}, {Name: "", Type: "x"}},
	}
	m := &workflow.Metadata{Description: "daily mail", Integrations: []string{"gmail"}, Categories: []string{"email"}}
	assert.Equal(t, "Digest daily mail Gmail n8n-nodes-base.gmail x gmail email", SearchText(w, m))
	assert.Equal(t, "Digest Gmail n8n-nodes-base.gmail x", SearchText(w, nil))
}

func TestBuild_RowsAreUnitLength(t *testing.T) {
	words := []string{"slack", "gmail", "stripe", "notion", "alert", "digest", "report", "sync"}
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 8).Draw(t, "docs")
		texts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			k := rapid.IntRange(1, 6).Draw(t, "words")
			parts := make([]string, 0, k)
			for j := 0; j < k; j++ {
				parts = append(parts, rapid.SampledFrom(words).Draw(t, "word"))
			}
			texts = append(texts, strings.Join(parts, " "))
		}
		s, err := Build(context.Background(), entries(texts...), DefaultParams(), fitTime)
		if err != nil {
			require.ErrorIs(t, err, ErrEmptyVocabulary)
			return
		}
		require.Len(t, s.Vectors, n*s.Manifest.Dim)
		for i := 0; i < n; i++ {
			var sum float64
			for _, x := range s.Row(i) {
				sum += float64(x) * float64(x)
			}
			if sum > 0 {
				require.InDelta(t, 1.0, sum, 1e-4)
			}
		}
	})
}
