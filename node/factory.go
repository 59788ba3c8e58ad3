package node

import (
	"fmt"

	"github.com/dudk/nfplayer/log"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/stretch"
)

// Constructor creates a node instance of a single kind.
type Constructor func(info Info, data *score.Node, directed *score.Directed, f *Factory) Node

// ParamError is returned when mutation targets a param the node doesn't
// have.
type ParamError struct {
	Kind  string
	Param string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s has no param %q to accept commands", e.Kind, e.Param)
}

// Factory creates node instances for score nodes.
type Factory struct {
	info         Info
	constructors map[string]Constructor
}

// NewFactory returns factory with all known node kinds registered.
// Missing stretch engine, logger and channel count of the info are
// replaced with defaults.
func NewFactory(info Info) *Factory {
	if info.Stretcher == nil {
		info.Stretcher = stretch.NewResampler
	}
	if info.Logger == nil {
		info.Logger = log.GetLogger()
	}
	if info.ChannelCount == 0 {
		info.ChannelCount = stretch.Channels
	}
	return &Factory{
		info: info,
		constructors: map[string]Constructor{
			score.KindFile:    newFile,
			score.KindGain:    newGain,
			score.KindLoop:    newLoop,
			score.KindStretch: newStretch,
		},
	}
}

// Register adds constructor for the kind. Existing constructor is
// replaced.
func (f *Factory) Register(kind string, c Constructor) {
	f.constructors[kind] = c
}

// Info returns rendering environment of the factory.
func (f *Factory) Info() Info {
	return f.info
}

// FromNode creates instance of the score node. Unknown kinds are
// substituted with passthrough.
func (f *Factory) FromNode(data *score.Node, directed *score.Directed) Node {
	c, ok := f.constructors[data.Kind]
	if !ok {
		f.info.Logger.Warnf("unimplemented node %s of kind %s, substituting with passthrough", data.ID, data.Kind)
		c = newPassthrough
	}
	return c(f.info, data, directed, f)
}

// CreateAncestors creates instances of node ancestors. Ancestors of the
// destination are graph leaves, ancestors of any other node are sources
// of its incoming edges.
func (f *Factory) CreateAncestors(data *score.Node, directed *score.Directed) []Node {
	var ancestors []Node
	if data.Kind == score.KindDestination {
		for _, leaf := range directed.Leaves() {
			ancestors = append(ancestors, f.FromNode(leaf, directed))
		}
		return ancestors
	}

	for _, e := range directed.IncomingEdges(data.ID) {
		source := directed.Source(e)
		if source == nil {
			continue
		}
		ancestors = append(ancestors, f.FromNode(source, directed))
	}
	return ancestors
}

// passthrough mixes its ancestors without changes.
type passthrough struct {
	base
}

func newPassthrough(info Info, data *score.Node, directed *score.Directed, f *Factory) Node {
	return &passthrough{base: newBase(info, data, directed, f)}
}

func newBase(info Info, data *score.Node, directed *score.Directed, f *Factory) base {
	return base{
		info:     info,
		data:     data,
		directed: directed,
		factory:  f,
	}
}
