package search

import (
	"strings"

	"golang.org/x/text/cases"
)

// KeywordSearch returns docs whose name, description, category tags or integration
// tags contain the whole query, case-insensitively. Matches come back in corpus order,
// unranked, at most limit of them.
func KeywordSearch(docs []Doc, query string, limit int) []Result {
	out := []Result{}
	folder := cases.Fold()
	q := folder.String(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return out
	}

	for _, d := range docs {
		if len(out) == limit {
			break
		}
		field, ok := keywordMatch(folder, d, q)
		if !ok {
			continue
		}
		r := d.result(1, "keyword: "+field)
		r.Rank = len(out) + 1
		out = append(out, r)
	}
	return out
}

func keywordMatch(folder cases.Caser, d Doc, foldedQuery string) (string, bool) {
	if strings.Contains(folder.String(d.Name), foldedQuery) {
		return "name", true
	}
	if strings.Contains(folder.String(d.Description), foldedQuery) {
		return "description", true
	}
	for _, c := range d.Categories {
		if strings.Contains(folder.String(c), foldedQuery) {
			return "category", true
		}
	}
	for _, i := range d.Integrations {
		if strings.Contains(folder.String(i), foldedQuery) {
			return "integration", true
		}
	}
	return "", false
}
