// Package score defines the Score document consumed by the renderer and a
// directed view over its graph.
package score

import (
	"encoding/json"
	"fmt"

	"github.com/rs/xid"
)

// Version is the score format version written by New.
const Version = "0.1.0"

// LoadingPolicy tells how much content must be loaded before playback.
type LoadingPolicy string

// Loading policies.
const (
	AllContentPlaythrough  LoadingPolicy = "allContentPlaythrough"
	SomeContentPlaythrough LoadingPolicy = "someContentPlaythrough"
)

type (
	// Score is a versioned graph document.
	Score struct {
		Graph   Graph  `json:"graph"`
		Version string `json:"version"`
	}

	// Graph is a set of nodes connected with edges.
	Graph struct {
		ID            string        `json:"id"`
		LoadingPolicy LoadingPolicy `json:"loadingPolicy,omitempty"`
		Nodes         []Node        `json:"nodes"`
		Edges         []Edge        `json:"edges"`
		Scripts       []Script      `json:"scripts,omitempty"`
	}

	// Node is a plain node data. Kind selects the node implementation.
	Node struct {
		ID            string                 `json:"id"`
		Kind          string                 `json:"kind"`
		LoadingPolicy LoadingPolicy          `json:"loadingPolicy,omitempty"`
		Params        map[string][]Command   `json:"params,omitempty"`
		Config        map[string]interface{} `json:"config,omitempty"`
	}

	// Edge connects source node output to target node input.
	Edge struct {
		ID         string `json:"id"`
		Source     string `json:"source"`
		Target     string `json:"target"`
		SourcePort string `json:"sourcePort,omitempty"`
		TargetPort string `json:"targetPort,omitempty"`
	}

	// Script is an opaque named script carried by the graph.
	Script struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
)

// New returns an empty score with a unique graph id.
func New() *Score {
	return &Score{
		Graph: Graph{
			ID:            NewID(),
			LoadingPolicy: AllContentPlaythrough,
			Nodes:         []Node{},
			Edges:         []Edge{},
		},
		Version: Version,
	}
}

// NewID returns a new unique id for graphs, nodes and edges.
func NewID() string {
	return xid.New().String()
}

// Parse decodes score document.
func Parse(data []byte) (*Score, error) {
	var s Score
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse score: %w", err)
	}
	if s.Graph.Nodes == nil {
		s.Graph.Nodes = []Node{}
	}
	if s.Graph.Edges == nil {
		s.Graph.Edges = []Edge{}
	}
	return &s, nil
}

// Clone returns a deep copy of the score. The copy goes through the wire
// format, so only the plain data shape survives.
func (s *Score) Clone() (*Score, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Add appends nodes to the graph.
func (s *Score) Add(nodes ...Node) {
	s.Graph.Nodes = append(s.Graph.Nodes, nodes...)
}

// Connect adds an edge from source to target.
func (s *Score) Connect(source, target Node) Edge {
	e := Connect(source, target)
	s.Graph.Edges = append(s.Graph.Edges, e)
	return e
}

// Connect returns a new edge from source to target.
func Connect(source, target Node) Edge {
	return Edge{
		ID:     NewID(),
		Source: source.ID,
		Target: target.ID,
	}
}

// String returns config value as string.
func (n *Node) String(key string) (string, bool) {
	v, ok := n.Config[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64 returns numeric config value as int64.
func (n *Node) Int64(key string) (int64, bool) {
	switch v := n.Config[key].(type) {
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			f, err := v.Float64()
			return int64(f), err == nil
		}
		return i, true
	default:
		return 0, false
	}
}
