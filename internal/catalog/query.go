package catalog

import (
	"math"
	"strings"
)

// Stats summarizes a built catalog.
type Stats struct {
	TotalWorkflows         int            `json:"total_workflows"`
	TotalCategories        int            `json:"total_categories"`
	TotalIntegrations      int            `json:"total_integrations"`
	QualityDistribution    QualitySummary `json:"quality_distribution"`
	ComplexityDistribution map[string]int `json:"complexity_distribution"`
	AverageQualityScore    float64        `json:"average_quality_score"`
	AverageNodeCount       float64        `json:"average_node_count"`
	LastUpdated            string         `json:"last_updated"`
}

// Stats computes corpus statistics from the indexes.
func (idx *Indexes) Stats() Stats {
	st := Stats{
		TotalWorkflows:         len(idx.Manifest.Workflows),
		TotalCategories:        len(idx.Categories.Categories),
		TotalIntegrations:      len(idx.Integrations.Integrations),
		QualityDistribution:    idx.Quality.Summary,
		ComplexityDistribution: map[string]int{},
		LastUpdated:            idx.Manifest.GeneratedAt,
	}
	var quality, nodes int
	for _, e := range idx.Manifest.Workflows {
		c := string(e.Complexity)
		if c == "" {
			c = "unknown"
		}
		st.ComplexityDistribution[c]++
		quality += e.QualityScore
		nodes += e.NodeCount
	}
	if n := len(idx.Manifest.Workflows); n > 0 {
		st.AverageQualityScore = round2(float64(quality) / float64(n))
		st.AverageNodeCount = round2(float64(nodes) / float64(n))
	}
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Filter narrows manifest entries. Zero-valued fields do not filter.
type Filter struct {
	Query       string
	Category    string
	Integration string
	Complexity  string
	MinQuality  *int
	MaxNodes    *int
	Limit       int
}

// Filter returns manifest entries matching f, in manifest order.
func (idx *Indexes) Filter(f Filter) []Entry {
	q := strings.ToLower(f.Query)
	out := []Entry{}
	for _, e := range idx.Manifest.Workflows {
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
		if q != "" && !entryMatches(e, q) {
			continue
		}
		if f.Category != "" && !hasTagFold(e.Categories, f.Category) {
			continue
		}
		if f.Integration != "" && !hasTagFold(e.Integrations, f.Integration) {
			continue
		}
		if f.Complexity != "" && !strings.EqualFold(string(e.Complexity), f.Complexity) {
			continue
		}
		if f.MinQuality != nil && e.QualityScore < *f.MinQuality {
			continue
		}
		if f.MaxNodes != nil && e.NodeCount > *f.MaxNodes {
			continue
		}
		out = append(out, e)
	}
	return out
}

func entryMatches(e Entry, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(e.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(e.Description), lowerQuery) {
		return true
	}
	for _, tags := range [][]string{e.Categories, e.Integrations} {
		for _, t := range tags {
			if strings.Contains(strings.ToLower(t), lowerQuery) {
				return true
			}
		}
	}
	return false
}

func hasTagFold(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
