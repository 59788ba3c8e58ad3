package score

import (
	"encoding/json"
	"sync"
)

// Directed is a read-only topology view over a score graph. The graph
// topology never changes after construction. Automation commands of the
// nodes are the only mutable part and are accessed through Commands and
// UpdateCommands.
type Directed struct {
	score *Score

	incoming map[string][]Edge
	outgoing map[string][]Edge
	byID     map[string]*Node

	mu      sync.RWMutex
	applied map[paramKey]string
}

type paramKey struct {
	node  *Node
	param string
}

// NewDirected creates a directed view. The score is owned by the view
// from now on.
func NewDirected(s *Score) *Directed {
	d := Directed{
		score:    s,
		incoming: make(map[string][]Edge),
		outgoing: make(map[string][]Edge),
		byID:     make(map[string]*Node),
		applied:  make(map[paramKey]string),
	}
	for _, e := range s.Graph.Edges {
		d.incoming[e.Target] = append(d.incoming[e.Target], e)
		d.outgoing[e.Source] = append(d.outgoing[e.Source], e)
	}
	for i := range s.Graph.Nodes {
		n := &s.Graph.Nodes[i]
		// first node wins for duplicate ids.
		if _, ok := d.byID[n.ID]; !ok {
			d.byID[n.ID] = n
		}
	}
	return &d
}

// GraphID returns id of the graph.
func (d *Directed) GraphID() string {
	return d.score.Graph.ID
}

// IncomingEdges returns edges which target is the node.
func (d *Directed) IncomingEdges(id string) []Edge {
	return d.incoming[id]
}

// OutgoingEdges returns edges which source is the node.
func (d *Directed) OutgoingEdges(id string) []Edge {
	return d.outgoing[id]
}

// Leaves returns nodes without outgoing edges.
func (d *Directed) Leaves() []*Node {
	var leaves []*Node
	for i := range d.score.Graph.Nodes {
		n := &d.score.Graph.Nodes[i]
		if len(d.outgoing[n.ID]) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Source returns source node of the edge or nil if it's not in the graph.
func (d *Directed) Source(e Edge) *Node {
	return d.byID[e.Source]
}

// Target returns target node of the edge or nil if it's not in the graph.
func (d *Directed) Target(e Edge) *Node {
	return d.byID[e.Target]
}

// ByID returns node by id or nil if it's not in the graph.
func (d *Directed) ByID(id string) *Node {
	return d.byID[id]
}

// Commands returns a copy of node's param commands.
func (d *Directed) Commands(n *Node, param string) []Command {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Command(nil), n.Params[param]...)
}

// UpdateCommands replaces node's param commands with the result of fn and
// returns a copy of the new list. Updates are applied once per key: all
// node instances sharing the same node data receive the same mutation,
// repeated calls with the last applied key only return current commands.
func (d *Directed) UpdateCommands(n *Node, param, key string, fn func([]Command) []Command) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := paramKey{node: n, param: param}
	if key == "" || d.applied[k] != key {
		if n.Params == nil {
			n.Params = make(map[string][]Command)
		}
		n.Params[param] = fn(n.Params[param])
		d.applied[k] = key
	}
	return append([]Command(nil), n.Params[param]...)
}

// Score returns a deep copy of the current score.
func (d *Directed) Score() (*Score, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.score.Clone()
}

// MarshalJSON encodes current score.
func (d *Directed) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.Marshal(d.score)
}
