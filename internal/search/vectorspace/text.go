package vectorspace

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kamusis/flowdex/internal/workflow"
)

// SearchText returns the text a document is vectorized from: display name,
// description, each node's name and type, integration and category tags. Missing
// parts are skipped.
func SearchText(w workflow.Workflow, m *workflow.Metadata) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	add(w.Name)
	if m != nil {
		add(m.Description)
	}
	for _, n := range w.Nodes {
		add(n.Name)
		add(n.Type)
	}
	if m != nil {
		for _, t := range m.Integrations {
			add(t)
		}
		for _, t := range m.Categories {
			add(t)
		}
	}
	return strings.Join(parts, " ")
}

// tokens lower-cases text and splits it into runs of two or more word characters.
func tokens(text string) []string {
	text = strings.ToLower(text)
	var out []string
	start := -1
	flush := func(end int) {
		if start >= 0 && utf8.RuneCountInString(text[start:end]) >= 2 {
			out = append(out, text[start:end])
		}
		start = -1
	}
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// analyze returns the features of text: stop words are removed first, then the
// unigrams and the bigrams of adjacent remaining tokens.
func analyze(text string, p Params) []string {
	var words []string
	for _, t := range tokens(text) {
		if p.StopWords != "" {
			if _, stop := englishStopWords[t]; stop {
				continue
			}
		}
		words = append(words, t)
	}
	lo, hi := max(p.NgramMin, 1), max(p.NgramMax, 1)
	var out []string
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}

// Snippet truncates search text for display.
func Snippet(text string) string {
	const limit = 200
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}
