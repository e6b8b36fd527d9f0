// Package catalog builds the cross-reference indexes over the corpus: the manifest,
// the category and integration maps and the quality tiers. Build is a pure fold over
// metadata; every ranked list is sorted by quality descending with ties kept in corpus
// order.
package catalog

import (
	"sort"
	"time"

	"github.com/kamusis/flowdex/internal/workflow"
)

// Quality tier names and lower bounds.
const (
	TierExcellent = "excellent"
	TierGood      = "good"
	TierFair      = "fair"
	TierBasic     = "basic"

	excellentMin = 80
	goodMin      = 60
	fairMin      = 40
)

// Tiers lists the quality tiers from best to worst.
var Tiers = []string{TierExcellent, TierGood, TierFair, TierBasic}

// Entry is one manifest row.
type Entry struct {
	WorkflowID      string              `json:"workflow_id"`
	Filename        string              `json:"filename"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Categories      []string            `json:"categories"`
	Integrations    []string            `json:"integrations"`
	Complexity      workflow.Complexity `json:"complexity"`
	QualityScore    int                 `json:"quality_score"`
	NodeCount       int                 `json:"node_count"`
	ConnectionCount int                 `json:"connection_count"`
	PopularityScore int                 `json:"popularity_score,omitempty"`
	ScrapedAt       string              `json:"scraped_at"`
	SourceURL       string              `json:"source_url"`
}

// Summary is the short form of an entry used inside the grouped indexes.
type Summary struct {
	WorkflowID   string              `json:"workflow_id"`
	Filename     string              `json:"filename"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Categories   []string            `json:"categories"`
	Integrations []string            `json:"integrations"`
	Complexity   workflow.Complexity `json:"complexity"`
	QualityScore int                 `json:"quality_score"`
	NodeCount    int                 `json:"node_count"`
}

// Manifest is the master catalog.
type Manifest struct {
	GeneratedAt    string  `json:"generated_at"`
	TotalWorkflows int     `json:"total_workflows"`
	Workflows      []Entry `json:"workflows"`
}

// CategoryIndex groups summaries by category tag.
type CategoryIndex struct {
	GeneratedAt     string               `json:"generated_at"`
	TotalCategories int                  `json:"total_categories"`
	Categories      map[string][]Summary `json:"categories"`
}

// IntegrationIndex groups summaries by integration tag and counts them.
type IntegrationIndex struct {
	GeneratedAt       string               `json:"generated_at"`
	TotalIntegrations int                  `json:"total_integrations"`
	IntegrationStats  map[string]int       `json:"integration_stats"`
	Integrations      map[string][]Summary `json:"integrations"`
}

// QualityTiers holds the four fixed buckets.
type QualityTiers struct {
	Excellent []Summary `json:"excellent"`
	Good      []Summary `json:"good"`
	Fair      []Summary `json:"fair"`
	Basic     []Summary `json:"basic"`
}

// QualitySummary counts entries per bucket.
type QualitySummary struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Basic     int `json:"basic"`
}

// QualityIndex buckets summaries into quality tiers.
type QualityIndex struct {
	GeneratedAt  string         `json:"generated_at"`
	QualityTiers QualityTiers   `json:"quality_tiers"`
	Summary      QualitySummary `json:"summary"`
}

// Indexes is the full artifact set produced by one build.
type Indexes struct {
	Manifest     Manifest
	Categories   CategoryIndex
	Integrations IntegrationIndex
	Quality      QualityIndex
}

// EntryFromMetadata builds the manifest row for a stored document.
func EntryFromMetadata(filename string, m *workflow.Metadata) Entry {
	e := Entry{
		WorkflowID:   workflow.ID(filename),
		Filename:     filename,
		Categories:   []string{},
		Integrations: []string{},
	}
	if m == nil {
		e.Categories = []string{workflow.DefaultCategory}
		return e
	}
	e.Name = m.Name
	e.Description = m.Description
	if len(m.Categories) > 0 {
		e.Categories = append([]string(nil), m.Categories...)
	} else {
		e.Categories = []string{workflow.DefaultCategory}
	}
	if len(m.Integrations) > 0 {
		e.Integrations = append([]string(nil), m.Integrations...)
	}
	e.Complexity = m.Complexity
	e.QualityScore = m.QualityScore
	e.NodeCount = m.NodeCount
	e.ConnectionCount = m.ConnectionCount
	e.PopularityScore = m.PopularityScore
	e.ScrapedAt = m.ScrapedAt
	e.SourceURL = m.SourceURL
	return e
}

// Summary returns the short form of e.
func (e Entry) Summary() Summary {
	return Summary{
		WorkflowID:   e.WorkflowID,
		Filename:     e.Filename,
		Name:         e.Name,
		Description:  e.Description,
		Categories:   e.Categories,
		Integrations: e.Integrations,
		Complexity:   e.Complexity,
		QualityScore: e.QualityScore,
		NodeCount:    e.NodeCount,
	}
}

// TierFor returns the quality tier of score.
func TierFor(score int) string {
	switch {
	case score >= excellentMin:
		return TierExcellent
	case score >= goodMin:
		return TierGood
	case score >= fairMin:
		return TierFair
	default:
		return TierBasic
	}
}

// Build folds entries (in corpus order) into the four indexes.
func Build(entries []Entry, now time.Time) *Indexes {
	generatedAt := now.UTC().Format(time.RFC3339)

	ranked := make([]Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].QualityScore > ranked[j].QualityScore
	})

	idx := &Indexes{
		Manifest: Manifest{
			GeneratedAt:    generatedAt,
			TotalWorkflows: len(ranked),
			Workflows:      ranked,
		},
		Categories: CategoryIndex{
			GeneratedAt: generatedAt,
			Categories:  map[string][]Summary{},
		},
		Integrations: IntegrationIndex{
			GeneratedAt:      generatedAt,
			IntegrationStats: map[string]int{},
			Integrations:     map[string][]Summary{},
		},
		Quality: QualityIndex{
			GeneratedAt: generatedAt,
			QualityTiers: QualityTiers{
				Excellent: []Summary{},
				Good:      []Summary{},
				Fair:      []Summary{},
				Basic:     []Summary{},
			},
		},
	}

	// Walking the already-ranked list keeps every group ranked and stable.
	for _, e := range ranked {
		s := e.Summary()
		for _, c := range uniqueTags(e.Categories) {
			idx.Categories.Categories[c] = append(idx.Categories.Categories[c], s)
		}
		for _, tag := range uniqueTags(e.Integrations) {
			idx.Integrations.Integrations[tag] = append(idx.Integrations.Integrations[tag], s)
			idx.Integrations.IntegrationStats[tag]++
		}
		tiers := &idx.Quality.QualityTiers
		switch TierFor(e.QualityScore) {
		case TierExcellent:
			tiers.Excellent = append(tiers.Excellent, s)
		case TierGood:
			tiers.Good = append(tiers.Good, s)
		case TierFair:
			tiers.Fair = append(tiers.Fair, s)
		default:
			tiers.Basic = append(tiers.Basic, s)
		}
	}

	idx.Categories.TotalCategories = len(idx.Categories.Categories)
	idx.Integrations.TotalIntegrations = len(idx.Integrations.Integrations)
	idx.Quality.Summary = QualitySummary{
		Excellent: len(idx.Quality.QualityTiers.Excellent),
		Good:      len(idx.Quality.QualityTiers.Good),
		Fair:      len(idx.Quality.QualityTiers.Fair),
		Basic:     len(idx.Quality.QualityTiers.Basic),
	}
	return idx
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ByCategory returns the ranked summaries for tag; unknown tags yield an empty list.
func (idx *Indexes) ByCategory(tag string) []Summary {
	return nonNil(idx.Categories.Categories[tag])
}

// ByIntegration returns the ranked summaries for tag; unknown tags yield an empty list.
func (idx *Indexes) ByIntegration(tag string) []Summary {
	return nonNil(idx.Integrations.Integrations[tag])
}

// ByTier returns the ranked summaries of a quality tier; unknown tiers yield an empty list.
func (idx *Indexes) ByTier(tier string) []Summary {
	t := idx.Quality.QualityTiers
	switch tier {
	case TierExcellent:
		return nonNil(t.Excellent)
	case TierGood:
		return nonNil(t.Good)
	case TierFair:
		return nonNil(t.Fair)
	case TierBasic:
		return nonNil(t.Basic)
	}
	return []Summary{}
}

// SortedKeys returns the keys of a grouped index in ascending order.
func SortedKeys(m map[string][]Summary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(s []Summary) []Summary {
	if s == nil {
		return []Summary{}
	}
	return s
}
