package node

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/mutate"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
)

// Destination is the synthetic root of a graph instance. Its ancestors
// are the graph leaves. Destination is safe to time-change while it's
// being fed: a new generation of ancestors is prepared aside and swapped
// in once ready.
type Destination struct {
	base
	mu sync.RWMutex
	// generation of the latest time change. Only the latest one is
	// swapped in.
	generation atomic.Uint64
}

// NewDestination creates a destination for the directed score.
func NewDestination(f *Factory, directed *score.Directed) *Destination {
	data := score.Node{
		ID:   "destination",
		Kind: score.KindDestination,
	}
	return &Destination{base: newBase(f.info, &data, directed, f)}
}

// GraphID returns id of the destination graph.
func (d *Destination) GraphID() string {
	return d.directed.GraphID()
}

// Directed returns the directed score of the destination.
func (d *Destination) Directed() *score.Directed {
	return d.directed
}

// Ancestors returns current generation.
func (d *Destination) Ancestors() []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ancestors
}

func (d *Destination) Feed(t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Feed(d.ancestors, t, count, buffers)
}

// TimeChange builds a new generation at time t and swaps it in. The
// generation is swapped in even if some nodes failed, those stay silent.
// A generation superseded by a later time change or unmount is dropped.
// Previous generation is unmounted asynchronously.
func (d *Destination) TimeChange(ctx context.Context, t instant.Instant, c *cache.Cache) error {
	generation := d.generation.Add(1)
	ancestors := d.factory.CreateAncestors(d.data, d.directed)
	err := TimeChange(ctx, ancestors, t, c)

	d.mu.Lock()
	if d.generation.Load() != generation {
		d.mu.Unlock()
		d.info.Logger.Debugf("destination %s: time change to %v superseded", d.GraphID(), t)
		go unmount(ancestors)
		return err
	}
	// mutations could arrive while generation was time-changed.
	for _, a := range ancestors {
		a.Mount()
	}
	previous := d.ancestors
	d.ancestors = ancestors
	d.mu.Unlock()

	go unmount(previous)
	return err
}

// Mount syncs current generation with the score data.
func (d *Destination) Mount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.ancestors {
		a.Mount()
	}
}

// Unmount drops current generation.
func (d *Destination) Unmount() {
	d.generation.Add(1)
	d.mu.Lock()
	previous := d.ancestors
	d.ancestors = nil
	d.mu.Unlock()
	unmount(previous)
}

func unmount(nodes []Node) {
	for _, n := range nodes {
		n.Unmount()
	}
}

func (d *Destination) Describe(t instant.Instant, descs []Description) []Description {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.base.Describe(t, descs)
}

// AcceptCommands applies mutation to every instance of the target node.
func (d *Destination) AcceptCommands(e *mutate.Effect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	for _, n := range WithID(d.ancestors, e.NodeID) {
		err = multierr.Append(err, n.AcceptCommands(e))
	}
	return err
}
