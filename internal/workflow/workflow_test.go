package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "name": "Email digest",
  "nodes": [
    {"id": "1", "name": "Gmail", "type": "n8n-nodes-base.gmailTrigger", "position": [100, 200], "parameters": {}},
    {"id": "2", "name": "Note", "type": "n8n-nodes-base.stickyNote", "parameters": {"content": "# Hello"}},
    "not-a-node"
  ],
  "connections": {"Gmail": {"main": [[{"node": "Note", "type": "main", "index": 0}]]}},
  "settings": {"executionOrder": "v1", "tags": [1, 2.50, "x"]}
}`

func TestParse_KeepsOriginalFields(t *testing.T) {
	c, meta, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	assert.Nil(t, meta)
	require.Equal(t, 4, c.Len())

	keys := []string{}
	for _, f := range c.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"name", "nodes", "connections", "settings"}, keys)

	raw, ok := c.Get("settings")
	require.True(t, ok)
	assert.Equal(t, `{"executionOrder": "v1", "tags": [1, 2.50, "x"]}`, string(raw))
}

func TestParse_RejectsNonObject(t *testing.T) {
	for _, in := range []string{`[]`, `"x"`, `{"a":1} {"b":2}`, `{"a":`, ``} {
		_, _, err := Parse([]byte(in))
		assert.ErrorIs(t, err, ErrNotObject, "input %q", in)
	}
}

func TestEncode_RoundTripPreservesContent(t *testing.T) {
	c, _, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	meta := &Metadata{Name: "Email digest", Categories: []string{"email"}, Complexity: ComplexityBeginner}
	out, err := Encode(c, meta)
	require.NoError(t, err)

	c2, meta2, err := Parse(out)
	require.NoError(t, err)
	require.NotNil(t, meta2)
	assert.Equal(t, "Email digest", meta2.Name)
	assert.Equal(t, []string{"email"}, meta2.Categories)
	assert.Equal(t, c.Fields(), c2.Fields())
	assert.Equal(t, c.Text(), c2.Text())
	assert.Equal(t, c.Fingerprint(), c2.Fingerprint())

	// A second cycle is byte-identical.
	out2, err := Encode(c2, meta2)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2))
}

func TestParse_BadMetadataIsDropped(t *testing.T) {
	c, meta, err := Parse([]byte(`{"_metadata": "oops", "name": "x"}`))
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Equal(t, 1, c.Len())
}

func TestText_ExcludesMetadata(t *testing.T) {
	c, _, err := Parse([]byte(`{"_metadata": {"workflow_name": "zzz"}, "name": "a b"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"a b"}`, c.Text())
}

func TestView_Tolerant(t *testing.T) {
	c, _, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	w := c.View()
	assert.Equal(t, "Email digest", w.Name)
	require.Len(t, w.Nodes, 3)
	assert.Equal(t, "Gmail", w.Nodes[0].Name)
	assert.Equal(t, []float64{100, 200}, w.Nodes[0].Position)
	assert.True(t, w.Nodes[1].IsStickyNote())
	assert.Equal(t, "# Hello", w.Nodes[1].StickyContent())
	assert.Equal(t, Node{}, w.Nodes[2])
	assert.Equal(t, 1, w.ConnectionCount())
	assert.Equal(t, 1, w.EdgeCount())
}

func TestView_WrongTypes(t *testing.T) {
	c, _, err := Parse([]byte(`{"name": 7, "nodes": {"a": 1}, "connections": []}`))
	require.NoError(t, err)

	w := c.View()
	assert.Empty(t, w.Name)
	assert.Empty(t, w.Nodes)
	assert.Zero(t, w.ConnectionCount())
}

func TestSet_ReplacesInPlace(t *testing.T) {
	var c Content
	c.Set("a", []byte(`1`))
	c.Set("b", []byte(`2`))
	c.Set("a", []byte(`3`))
	assert.Equal(t, `{"a":3,"b":2}`, c.Text())
}

func TestID_Deterministic(t *testing.T) {
	assert.Equal(t, "886313e1-3b8a-5372-9b90-0c9aee199e5d", ID("python.org"))
	d := Document{Filename: "python.org"}
	assert.Equal(t, ID("python.org"), d.ID())
	assert.NotEqual(t, ID("a.json"), ID("b.json"))
}
