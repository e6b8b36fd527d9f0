// Package metadata derives structured signals from a raw workflow document.
//
// Extract is a pure function: it never performs I/O and never fails. Missing or
// wrongly-shaped fields contribute nothing to the result.
package metadata

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kamusis/flowdex/internal/workflow"
)

// Quality check weights.
const (
	WeightDocumentation      = 30
	WeightCredentialHygiene  = 20
	WeightErrorHandling      = 15
	WeightOrganization       = 10
	WeightModernIntegrations = 15
	WeightParameterization   = 10
)

const (
	minStickyLength      = 100
	minDescriptionLength = 20
	maxDescriptionLines  = 3
	maxDescriptionParts  = 2
	descriptionSeparator = " | "
	untitledWorkflowName = "Untitled Workflow"
	beginnerMaxScore     = 5.0
	intermediateMaxScore = 15.0
	conditionalBonus     = 3.0
	loopBonus            = 5.0
	minNodesForOrgCheck  = 3
)

// Provenance describes where a document came from.
type Provenance struct {
	SourceURL string
	ScrapedAt string
	// UsedCount is the upstream usage counter; zero means unknown.
	UsedCount int
}

// Extract derives a metadata record for doc.
func Extract(doc *workflow.Document, prov Provenance) workflow.Metadata {
	w := doc.Content.View()
	text := strings.ToLower(doc.Content.Text())

	checks := QualityCheck(w, text)
	m := workflow.Metadata{
		WorkflowID:      doc.ID(),
		Name:            workflowName(w.Name, prov.SourceURL),
		Description:     Description(w.Nodes),
		Categories:      Categories(text),
		Integrations:    Integrations(w.Nodes),
		Complexity:      Complexity(w),
		QualityScore:    Score(checks),
		QualityChecks:   &checks,
		NodeCount:       len(w.Nodes),
		ConnectionCount: w.ConnectionCount(),
		HasTrigger:      hasTrigger(w.Nodes),
		HasCredentials:  hasCredentials(w.Nodes),
		SourceURL:       prov.SourceURL,
		ScrapedAt:       prov.ScrapedAt,
	}
	if prov.UsedCount > 0 {
		m.UsedCount = prov.UsedCount
		m.PopularityScore = PopularityScore(prov.UsedCount)
	}
	return m
}

// Enrich re-derives the metadata of doc while keeping provenance fields from the
// previous record. Provenance is immutable once written.
func Enrich(doc *workflow.Document, prev *workflow.Metadata) workflow.Metadata {
	return Extract(doc, ProvenanceOf(prev))
}

// ProvenanceOf returns the provenance recorded in m; nil yields the zero value.
func ProvenanceOf(m *workflow.Metadata) Provenance {
	if m == nil {
		return Provenance{}
	}
	return Provenance{SourceURL: m.SourceURL, ScrapedAt: m.ScrapedAt, UsedCount: m.UsedCount}
}

// Or fills the fields p leaves empty from fallback.
func (p Provenance) Or(fallback Provenance) Provenance {
	if p.SourceURL == "" {
		p.SourceURL = fallback.SourceURL
	}
	if p.ScrapedAt == "" {
		p.ScrapedAt = fallback.ScrapedAt
	}
	if p.UsedCount == 0 {
		p.UsedCount = fallback.UsedCount
	}
	return p
}

// Integrations returns the set of services referenced by node types, in table order.
func Integrations(nodes []workflow.Node) []string {
	t := mustTables()
	types := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != "" {
			types = append(types, strings.ToLower(n.Type))
		}
	}
	out := []string{}
	for _, svc := range t.Services {
		if anyTypeMatches(types, svc.Patterns) {
			out = append(out, svc.Tag)
		}
	}
	return out
}

func anyTypeMatches(types, patterns []string) bool {
	for _, typ := range types {
		for _, p := range patterns {
			if strings.Contains(typ, p) {
				return true
			}
		}
	}
	return false
}

// Categories returns the category tags whose keywords occur in the lower-cased
// document text, or the fallback category when none match.
func Categories(lowerText string) []string {
	t := mustTables()
	out := []string{}
	for _, c := range t.Categories {
		if containsAny(lowerText, c.Patterns) {
			out = append(out, c.Tag)
		}
	}
	if len(out) == 0 {
		return []string{workflow.DefaultCategory}
	}
	return out
}

// ComplexityScore is the raw structural score used to pick a complexity tier.
func ComplexityScore(w workflow.Workflow) float64 {
	score := float64(len(w.Nodes)) + 0.5*float64(w.ConnectionCount())
	var hasIf, hasLoop bool
	for _, n := range w.Nodes {
		typ := strings.ToLower(n.Type)
		hasIf = hasIf || strings.Contains(typ, "if")
		hasLoop = hasLoop || strings.Contains(typ, "loop")
	}
	if hasIf {
		score += conditionalBonus
	}
	if hasLoop {
		score += loopBonus
	}
	return score
}

// Complexity maps the complexity score to a tier. Boundaries fall to the lower tier.
func Complexity(w workflow.Workflow) workflow.Complexity {
	return ComplexityTier(ComplexityScore(w))
}

// ComplexityTier maps a raw score to a tier.
func ComplexityTier(score float64) workflow.Complexity {
	switch {
	case score <= beginnerMaxScore:
		return workflow.ComplexityBeginner
	case score <= intermediateMaxScore:
		return workflow.ComplexityIntermediate
	default:
		return workflow.ComplexityAdvanced
	}
}

// QualityCheck runs the six quality checks over the view and the lower-cased text.
func QualityCheck(w workflow.Workflow, lowerText string) workflow.QualityChecks {
	t := mustTables()
	return workflow.QualityChecks{
		Documentation:      hasDocumentation(w.Nodes),
		CredentialHygiene:  !HasHardcodedSecret(lowerText) && hasCredentials(w.Nodes),
		ErrorHandling:      containsAny(lowerText, t.ErrorTokens),
		Organization:       isOrganized(w.Nodes),
		ModernIntegrations: containsAny(lowerText, t.ModernTokens),
		Parameterization:   containsAny(lowerText, t.ExpressionTokens),
	}
}

// Score sums the weights of the passing checks.
func Score(c workflow.QualityChecks) int {
	score := 0
	for _, check := range []struct {
		pass   bool
		weight int
	}{
		{c.Documentation, WeightDocumentation},
		{c.CredentialHygiene, WeightCredentialHygiene},
		{c.ErrorHandling, WeightErrorHandling},
		{c.Organization, WeightOrganization},
		{c.ModernIntegrations, WeightModernIntegrations},
		{c.Parameterization, WeightParameterization},
	} {
		if check.pass {
			score += check.weight
		}
	}
	return min(score, 100)
}

// HasHardcodedSecret reports whether text contains an API-key-like, password-like or
// bearer-token-like literal.
func HasHardcodedSecret(text string) bool {
	for _, re := range mustTables().Secrets {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func hasDocumentation(nodes []workflow.Node) bool {
	for _, n := range nodes {
		if n.IsStickyNote() && utf8.RuneCountInString(n.StickyContent()) > minStickyLength {
			return true
		}
	}
	return false
}

func hasCredentials(nodes []workflow.Node) bool {
	for _, n := range nodes {
		if n.HasCredentials() {
			return true
		}
	}
	return false
}

func hasTrigger(nodes []workflow.Node) bool {
	for _, n := range nodes {
		typ := strings.ToLower(n.Type)
		if strings.Contains(typ, "trigger") || strings.Contains(typ, "webhook") {
			return true
		}
	}
	return false
}

func isOrganized(nodes []workflow.Node) bool {
	if len(nodes) < minNodesForOrgCheck {
		return true
	}
	re := mustTables().GenericNodeName
	generic := 0
	for _, n := range nodes {
		if re.MatchString(strings.TrimSpace(n.Name)) {
			generic++
		}
	}
	return float64(generic) < float64(len(nodes))/2
}

func containsAny(text string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// Description builds a short description from sticky-note content.
func Description(nodes []workflow.Node) string {
	var parts []string
	for _, n := range nodes {
		if len(parts) == maxDescriptionParts {
			break
		}
		if !n.IsStickyNote() {
			continue
		}
		if frag := descriptionFragment(n.StickyContent()); frag != "" {
			parts = append(parts, frag)
		}
	}
	return strings.Join(parts, descriptionSeparator)
}

func descriptionFragment(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > maxDescriptionLines {
		lines = lines[:maxDescriptionLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if utf8.RuneCountInString(line) > minDescriptionLength {
			return line
		}
	}
	return ""
}

func workflowName(name, sourceURL string) string {
	if s := strings.TrimSpace(name); s != "" {
		return s
	}
	if s := NameFromURL(sourceURL); s != "" {
		return s
	}
	return untitledWorkflowName
}

// NameFromURL derives a display name from the last path segment of a source URL:
// dashes become spaces, words are title-cased and a leading numeric id is dropped.
func NameFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	slug := path[strings.LastIndex(path, "/")+1:]
	slug = strings.TrimLeftFunc(slug, unicode.IsDigit)
	slug = strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
	if slug == "" {
		return ""
	}
	return cases.Title(language.English).String(slug)
}

// PopularityScore maps an upstream usage count to a coarse popularity tier.
func PopularityScore(usedCount int) int {
	switch {
	case usedCount >= 50000:
		return 100
	case usedCount >= 10000:
		return 85
	case usedCount >= 5000:
		return 70
	case usedCount >= 1000:
		return 55
	case usedCount >= 100:
		return 40
	default:
		return 25
	}
}
