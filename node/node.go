// Package node instantiates score nodes into trees of sample producers.
//
// Every destination owns a generation of node instances built from the
// graph data. Generations are rebuilt on each time change: nodes are
// cheap, content is shared through the cache.
package node

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/log"
	"github.com/dudk/nfplayer/mutate"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
	"github.com/dudk/nfplayer/stretch"
)

type (
	// Info describes the rendering environment shared by all nodes.
	Info struct {
		SampleRate   int
		QuantumSize  int
		ChannelCount int
		// Fetch loads and decodes content of file nodes.
		Fetch cache.FetchFunc
		// Stretcher creates time-stretch engines for stretch nodes.
		Stretcher stretch.Factory
		Logger    log.Logger
	}

	// Node is an instance of score node within a generation.
	Node interface {
		// Data returns the score node this instance was built from.
		Data() *score.Node
		// Ancestors returns current ancestor instances.
		Ancestors() []Node
		// Feed appends buffers produced for the quantum starting at t.
		Feed(t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer
		// TimeChange rebuilds ancestors and prepares the node to produce
		// samples starting at t.
		TimeChange(ctx context.Context, t instant.Instant, c *cache.Cache) error
		// Mount syncs node state with the score data. It's called once
		// the whole generation is time-changed, right before it's swapped in.
		Mount()
		// Unmount releases resources of the node and its ancestors.
		Unmount()
		// Describe appends playback description of the node and its
		// ancestors at time t.
		Describe(t instant.Instant, descs []Description) []Description
		// AcceptCommands applies commands mutation to the node param.
		AcceptCommands(e *mutate.Effect) error
	}

	// Description describes what node is playing at some render time.
	Description struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
		// Time is the render time the node used to pull its ancestors.
		Time instant.Instant  `json:"time"`
		File *FileDescription `json:"file,omitempty"`
		Loop *LoopDescription `json:"loop,omitempty"`
	}

	// FileDescription describes file node content.
	FileDescription struct {
		MaxDuration instant.Instant `json:"maxDuration"`
	}

	// LoopDescription describes current loop iteration.
	LoopDescription struct {
		LoopsSinceStart  float64         `json:"loopsSinceStart"`
		CurrentLoopStart instant.Instant `json:"currentLoopStartTime"`
		CurrentLoopEnd   instant.Instant `json:"currentLoopEndTime"`
		LoopElapsed      instant.Instant `json:"loopElapsedTime"`
		Infinite         bool            `json:"infinite"`
	}
)

// base carries the behaviour shared by all node kinds. Kinds override
// what they need.
type base struct {
	info      Info
	data      *score.Node
	directed  *score.Directed
	factory   *Factory
	ancestors []Node
}

func (b *base) Data() *score.Node {
	return b.data
}

func (b *base) Ancestors() []Node {
	return b.ancestors
}

func (b *base) Feed(t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer {
	return Feed(b.ancestors, t, count, buffers)
}

// TimeChange rebuilds ancestors and time-changes them concurrently.
func (b *base) TimeChange(ctx context.Context, t instant.Instant, c *cache.Cache) error {
	b.ancestors = b.factory.CreateAncestors(b.data, b.directed)
	return TimeChange(ctx, b.ancestors, t, c)
}

func (b *base) Mount() {
	for _, a := range b.ancestors {
		a.Mount()
	}
}

func (b *base) Unmount() {
	for _, a := range b.ancestors {
		a.Unmount()
	}
}

func (b *base) Describe(t instant.Instant, descs []Description) []Description {
	descs = append(descs, Description{
		ID:   b.data.ID,
		Kind: b.data.Kind,
		Time: t,
	})
	return Describe(b.ancestors, t, descs)
}

func (b *base) AcceptCommands(e *mutate.Effect) error {
	return &ParamError{Kind: b.data.Kind, Param: e.ParamName}
}

// Feed feeds all nodes at the same time.
func Feed(nodes []Node, t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer {
	for _, n := range nodes {
		buffers = n.Feed(t, count, buffers)
	}
	return buffers
}

// TimeChange time-changes all nodes concurrently. It waits for all nodes
// and returns the first error.
func TimeChange(ctx context.Context, nodes []Node, t instant.Instant, c *cache.Cache) error {
	var g errgroup.Group
	for _, n := range nodes {
		n := n
		g.Go(func() error {
			return n.TimeChange(ctx, t, c)
		})
	}
	return g.Wait()
}

// Describe describes all nodes at the same time.
func Describe(nodes []Node, t instant.Instant, descs []Description) []Description {
	for _, n := range nodes {
		descs = n.Describe(t, descs)
	}
	return descs
}

// WithID returns all instances of the node with id. Diamonds in the graph
// result in multiple instances of the same node. Ancestors of matched
// instances are not searched.
func WithID(nodes []Node, id string) []Node {
	var result []Node
	for _, n := range nodes {
		if n.Data().ID == id {
			result = append(result, n)
			continue
		}
		result = append(result, WithID(n.Ancestors(), id)...)
	}
	return result
}
