package workflow

import (
	"encoding/json"
	"strings"
)

// Node is one step of a workflow graph.
type Node struct {
	ID          string
	Name        string
	Type        string
	Position    []float64
	Parameters  map[string]any
	Credentials map[string]any
}

// Edge is one downstream link from a source node's output port.
type Edge struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Connections maps a source node to its ports; each port holds output slots of edges.
type Connections map[string]map[string][][]Edge

// Workflow is a typed, read-only view over Content.
type Workflow struct {
	Name        string
	Nodes       []Node
	Connections Connections
}

// View decodes the well-known fields of c. Missing or wrongly-typed fields decode to
// zero values; View never fails.
func (c Content) View() Workflow {
	var w Workflow
	if raw, ok := c.Get("name"); ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			w.Name = s
		}
	}
	if raw, ok := c.Get("nodes"); ok {
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) == nil {
			w.Nodes = make([]Node, 0, len(items))
			for _, it := range items {
				w.Nodes = append(w.Nodes, decodeNode(it))
			}
		}
	}
	if raw, ok := c.Get("connections"); ok {
		w.Connections = decodeConnections(raw)
	}
	return w
}

// ConnectionCount returns the number of source nodes with a connections entry.
func (w Workflow) ConnectionCount() int {
	return len(w.Connections)
}

// EdgeCount returns the total number of downstream edges.
func (w Workflow) EdgeCount() int {
	n := 0
	for _, ports := range w.Connections {
		for _, outputs := range ports {
			for _, edges := range outputs {
				n += len(edges)
			}
		}
	}
	return n
}

// IsStickyNote reports whether the node is a free-text annotation.
func (n Node) IsStickyNote() bool {
	return strings.Contains(strings.ToLower(n.Type), "stickynote")
}

// StickyContent returns the note body of a sticky note node.
func (n Node) StickyContent() string {
	s, _ := n.Parameters["content"].(string)
	return s
}

// HasCredentials reports whether the node declares a credential reference.
func (n Node) HasCredentials() bool {
	return len(n.Credentials) > 0
}

func decodeNode(raw json.RawMessage) Node {
	var m map[string]any
	if json.Unmarshal(raw, &m) != nil {
		return Node{}
	}
	n := Node{
		ID:   stringField(m, "id"),
		Name: stringField(m, "name"),
		Type: stringField(m, "type"),
	}
	if pos, ok := m["position"].([]any); ok {
		for _, p := range pos {
			if f, ok := p.(float64); ok {
				n.Position = append(n.Position, f)
			}
		}
	}
	if params, ok := m["parameters"].(map[string]any); ok {
		n.Parameters = params
	}
	if creds, ok := m["credentials"].(map[string]any); ok {
		n.Credentials = creds
	}
	return n
}

func decodeConnections(raw json.RawMessage) Connections {
	var sources map[string]json.RawMessage
	if json.Unmarshal(raw, &sources) != nil {
		return nil
	}
	out := make(Connections, len(sources))
	for src, portsRaw := range sources {
		ports := map[string][][]Edge{}
		var portMap map[string]json.RawMessage
		if json.Unmarshal(portsRaw, &portMap) == nil {
			for port, slotsRaw := range portMap {
				ports[port] = decodeSlots(slotsRaw)
			}
		}
		out[src] = ports
	}
	return out
}

func decodeSlots(raw json.RawMessage) [][]Edge {
	var slots []json.RawMessage
	if json.Unmarshal(raw, &slots) != nil {
		return nil
	}
	out := make([][]Edge, 0, len(slots))
	for _, slotRaw := range slots {
		var items []json.RawMessage
		if json.Unmarshal(slotRaw, &items) != nil {
			out = append(out, nil)
			continue
		}
		edges := make([]Edge, 0, len(items))
		for _, it := range items {
			var e Edge
			if json.Unmarshal(it, &e) == nil {
				edges = append(edges, e)
			}
		}
		out = append(out, edges)
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
