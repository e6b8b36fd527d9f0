package metadata

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kamusis/flowdex/internal/workflow"
)

func parseDoc(t *testing.T, filename, raw string) *workflow.Document {
	t.Helper()
	c, meta, err := workflow.Parse([]byte(raw))
	require.NoError(t, err)
	return &workflow.Document{Filename: filename, Content: c, Metadata: meta}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestLoadTables(t *testing.T) {
	tb, err := LoadTables()
	require.NoError(t, err)
	assert.NotEmpty(t, tb.Services)
	assert.NotEmpty(t, tb.Categories)
	assert.Len(t, tb.Secrets, 4)
	for _, s := range tb.Services {
		for _, p := range s.Patterns {
			assert.Equal(t, strings.ToLower(p), p)
		}
	}
	assert.Contains(t, ServiceTags(), "gmail")
	assert.NotContains(t, CategoryTags(), workflow.DefaultCategory)
}

func TestExtract_PerfectScore(t *testing.T) {
	note := strings.Repeat("a", 150)
	doc := parseDoc(t, "perfect.json", mustJSON(t, map[string]any{
		"name": "Perfect",
		"nodes": []any{
			map[string]any{"name": "About", "type": "n8n-nodes-base.stickyNote", "parameters": map[string]any{"content": note}},
			map[string]any{
				"name":        "Ask model",
				"type":        "n8n-nodes-base.openai",
				"parameters":  map[string]any{"prompt": "{{expr}}", "onError": "continue"},
				"credentials": map[string]any{"openAiApi": map[string]any{"id": "1", "name": "OpenAI"}},
			},
		},
		"connections": map[string]any{},
	}))

	m := Extract(doc, Provenance{})
	require.NotNil(t, m.QualityChecks)
	assert.Equal(t, workflow.QualityChecks{
		Documentation:      true,
		CredentialHygiene:  true,
		ErrorHandling:      true,
		Organization:       true,
		ModernIntegrations: true,
		Parameterization:   true,
	}, *m.QualityChecks)
	assert.Equal(t, 100, m.QualityScore)
	assert.Equal(t, "Perfect", m.Name)
	assert.Equal(t, workflow.ID("perfect.json"), m.WorkflowID)
	assert.Equal(t, 2, m.NodeCount)
	assert.True(t, m.HasCredentials)
	assert.Contains(t, m.Integrations, "openai")
	assert.Contains(t, m.Categories, "ai")
}

func TestExtract_EmptyDocument(t *testing.T) {
	doc := parseDoc(t, "empty.json", `{}`)
	m := Extract(doc, Provenance{})
	assert.Equal(t, "Untitled Workflow", m.Name)
	assert.Equal(t, []string{"general"}, m.Categories)
	assert.Empty(t, m.Integrations)
	assert.Equal(t, workflow.ComplexityBeginner, m.Complexity)
	assert.Zero(t, m.NodeCount)
	assert.Equal(t, WeightOrganization, m.QualityScore)
	assert.Empty(t, m.Description)
}

func TestExtract_MalformedFields(t *testing.T) {
	doc := parseDoc(t, "odd.json", `{"name": ["x"], "nodes": [1, null, {"type": 5}], "connections": "nope"}`)
	m := Extract(doc, Provenance{SourceURL: "https://n8n.io/workflows/1234-send-slack-alerts/"})
	assert.Equal(t, "Send Slack Alerts", m.Name)
	assert.Equal(t, 3, m.NodeCount)
	assert.Zero(t, m.ConnectionCount)
}

func TestIntegrations_SetSemantics(t *testing.T) {
	nodes := []workflow.Node{
		{Type: "n8n-nodes-base.slack"},
		{Type: "n8n-nodes-base.slack"},
		{Type: "n8n-nodes-base.gmailTrigger"},
		{Type: "n8n-nodes-base.unknownThing"},
	}
	got := Integrations(nodes)
	assert.ElementsMatch(t, []string{"slack", "gmail"}, got)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"general"}, Categories(`{"name":"nothing here"}`))
	got := Categories(strings.ToLower(`{"type":"n8n-nodes-base.gmail","x":"Stripe"}`))
	assert.Contains(t, got, "email")
	assert.Contains(t, got, "ecommerce")
	assert.NotContains(t, got, "general")
}

func TestComplexityTier_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  workflow.Complexity
	}{
		{0, workflow.ComplexityBeginner},
		{5, workflow.ComplexityBeginner},
		{5.5, workflow.ComplexityIntermediate},
		{15, workflow.ComplexityIntermediate},
		{15.5, workflow.ComplexityAdvanced},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComplexityTier(tc.score), "score %v", tc.score)
	}
}

func TestComplexityScore_Bonuses(t *testing.T) {
	w := workflow.Workflow{
		Nodes: []workflow.Node{{Type: "n8n-nodes-base.If"}, {Type: "n8n-nodes-base.splitInBatches"}},
		Connections: workflow.Connections{
			"a": {"main": {{{Node: "b"}}}},
		},
	}
	assert.Equal(t, 2+0.5+3, ComplexityScore(w))

	w.Nodes = append(w.Nodes, workflow.Node{Type: "n8n-nodes-base.loopOverItems"})
	assert.Equal(t, 3+0.5+3+5, ComplexityScore(w))
	assert.Equal(t, workflow.ComplexityIntermediate, Complexity(w))
}

func TestHasHardcodedSecret(t *testing.T) {
	secrets := []string{
		`{"api_key":"abcdefghijklmnop1234"}`,
		`{"apikey": "0123456789abcdef"}`,
		`{"x":"sk-abcdefghijklmnopqrstuvwx"}`,
		`{"password":"hunter2"}`,
		`{"header":"Bearer abcdefghijklmnopqrstuvwxyz"}`,
	}
	for _, s := range secrets {
		assert.True(t, HasHardcodedSecret(strings.ToLower(s)), s)
	}
	clean := []string{
		`{"api_key":"={{$env.KEY}}"}`,
		`{"password":"={{ $json.pw }}"}`,
		`{"password":""}`,
		`{"header":"Bearer {{token}}"}`,
		`{"name":"plain"}`,
	}
	for _, s := range clean {
		assert.False(t, HasHardcodedSecret(strings.ToLower(s)), s)
	}
}

func TestQualityCheck_SecretBlocksCredentialHygiene(t *testing.T) {
	doc := parseDoc(t, "s.json", `{"nodes":[{"name":"A","type":"x","credentials":{"a":{}},"parameters":{"password":"hunter2"}}]}`)
	m := Extract(doc, Provenance{})
	assert.False(t, m.QualityChecks.CredentialHygiene)
	assert.True(t, m.HasCredentials)
}

func TestOrganization(t *testing.T) {
	named := func(names ...string) []workflow.Node {
		out := make([]workflow.Node, 0, len(names))
		for _, n := range names {
			out = append(out, workflow.Node{Name: n})
		}
		return out
	}
	assert.True(t, isOrganized(named("Set", "If")))
	assert.True(t, isOrganized(named("Set", "Fetch orders", "Notify team")))
	assert.False(t, isOrganized(named("Set", "HTTP Request1", "Notify team")))
	assert.False(t, isOrganized(named("Set", "Code", "Fetch", "Notify")))
	assert.True(t, isOrganized(named("Settings", "Iffy", "Coder")))
}

func TestDescription(t *testing.T) {
	nodes := []workflow.Node{
		{Type: "n8n-nodes-base.stickyNote", Parameters: map[string]any{"content": "# Short\n## This note explains the whole flow\nmore"}},
		{Type: "n8n-nodes-base.set", Parameters: map[string]any{"content": "ignored because not a sticky note at all"}},
		{Type: "n8n-nodes-base.stickyNote", Parameters: map[string]any{"content": "tiny\n\n\nfourth line is long enough but beyond three"}},
		{Type: "n8n-nodes-base.stickyNote", Parameters: map[string]any{"content": "Second fragment that is quite long"}},
		{Type: "n8n-nodes-base.stickyNote", Parameters: map[string]any{"content": "Third fragment never used at all"}},
	}
	assert.Equal(t, "This note explains the whole flow | Second fragment that is quite long", Description(nodes))
	assert.Empty(t, Description(nil))
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "Send Slack Alerts", NameFromURL("https://n8n.io/workflows/1234-send-slack-alerts"))
	assert.Equal(t, "Daily Report", NameFromURL("daily-report"))
	assert.Empty(t, NameFromURL(""))
	assert.Empty(t, NameFromURL("https://n8n.io/workflows/1234"))
}

func TestPopularityScore(t *testing.T) {
	assert.Equal(t, 100, PopularityScore(50000))
	assert.Equal(t, 85, PopularityScore(10000))
	assert.Equal(t, 70, PopularityScore(9999))
	assert.Equal(t, 55, PopularityScore(1000))
	assert.Equal(t, 40, PopularityScore(100))
	assert.Equal(t, 25, PopularityScore(1))

	doc := parseDoc(t, "p.json", `{"name":"p"}`)
	m := Extract(doc, Provenance{UsedCount: 12000})
	assert.Equal(t, 85, m.PopularityScore)
	m = Extract(doc, Provenance{})
	assert.Zero(t, m.PopularityScore)
}

func TestEnrich_KeepsProvenance(t *testing.T) {
	doc := parseDoc(t, "e.json", `{"name":"e"}`)
	prev := &workflow.Metadata{SourceURL: "https://example.com/w/1", ScrapedAt: "2024-01-01T00:00:00Z", Name: "stale"}
	m := Enrich(doc, prev)
	assert.Equal(t, "https://example.com/w/1", m.SourceURL)
	assert.Equal(t, "2024-01-01T00:00:00Z", m.ScrapedAt)
	assert.Equal(t, "e", m.Name)
}

func TestExtract_Properties(t *testing.T) {
	types := []string{"n8n-nodes-base.slack", "n8n-nodes-base.if", "n8n-nodes-base.stickyNote", "n8n-nodes-base.code", "custom.loopy"}
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 25).Draw(rt, "nodes")
		nodes := make([]any, 0, n)
		for i := 0; i < n; i++ {
			nodes = append(nodes, map[string]any{
				"name":       rapid.StringMatching(`[A-Za-z ]{0,12}`).Draw(rt, "name"),
				"type":       rapid.SampledFrom(types).Draw(rt, "type"),
				"parameters": map[string]any{"content": rapid.String().Draw(rt, "content")},
			})
		}
		raw, err := json.Marshal(map[string]any{"nodes": nodes, "connections": map[string]any{}})
		require.NoError(rt, err)
		c, _, err := workflow.Parse(raw)
		require.NoError(rt, err)
		doc := &workflow.Document{Filename: "p.json", Content: c}

		m := Extract(doc, Provenance{})
		require.GreaterOrEqual(rt, m.QualityScore, 0)
		require.LessOrEqual(rt, m.QualityScore, 100)
		require.NotEmpty(rt, m.Categories)
		require.Equal(rt, n, m.NodeCount)
		require.Contains(rt, []workflow.Complexity{
			workflow.ComplexityBeginner, workflow.ComplexityIntermediate, workflow.ComplexityAdvanced,
		}, m.Complexity)
		seen := map[string]bool{}
		for _, tag := range m.Integrations {
			require.False(rt, seen[tag], "duplicate integration %q", tag)
			seen[tag] = true
		}
		require.Equal(rt, m, Extract(doc, Provenance{}))
	})
}

func TestScore_FlippingOneCheckMovesByItsWeight(t *testing.T) {
	flips := []struct {
		name   string
		weight int
		flip   func(c *workflow.QualityChecks)
	}{
		{"documentation", WeightDocumentation, func(c *workflow.QualityChecks) { c.Documentation = !c.Documentation }},
		{"credential_hygiene", WeightCredentialHygiene, func(c *workflow.QualityChecks) { c.CredentialHygiene = !c.CredentialHygiene }},
		{"error_handling", WeightErrorHandling, func(c *workflow.QualityChecks) { c.ErrorHandling = !c.ErrorHandling }},
		{"organization", WeightOrganization, func(c *workflow.QualityChecks) { c.Organization = !c.Organization }},
		{"modern_integrations", WeightModernIntegrations, func(c *workflow.QualityChecks) { c.ModernIntegrations = !c.ModernIntegrations }},
		{"parameterization", WeightParameterization, func(c *workflow.QualityChecks) { c.Parameterization = !c.Parameterization }},
	}

	rapid.Check(t, func(rt *rapid.T) {
		base := workflow.QualityChecks{
			Documentation:      rapid.Bool().Draw(rt, "documentation"),
			CredentialHygiene:  rapid.Bool().Draw(rt, "credential_hygiene"),
			ErrorHandling:      rapid.Bool().Draw(rt, "error_handling"),
			Organization:       rapid.Bool().Draw(rt, "organization"),
			ModernIntegrations: rapid.Bool().Draw(rt, "modern_integrations"),
			Parameterization:   rapid.Bool().Draw(rt, "parameterization"),
		}
		f := flips[rapid.IntRange(0, len(flips)-1).Draw(rt, "check")]

		flipped := base
		f.flip(&flipped)
		diff := Score(flipped) - Score(base)
		if diff < 0 {
			diff = -diff
		}
		if diff != f.weight {
			rt.Fatalf("flipping %s moved the score by %d, want %d", f.name, diff, f.weight)
		}
	})
}
