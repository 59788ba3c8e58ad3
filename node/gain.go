package node

import (
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/mutate"
	"github.com/dudk/nfplayer/param"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
)

// gain applies gain automation to its ancestors.
type gain struct {
	base
	gain *param.Param
}

func newGain(info Info, data *score.Node, directed *score.Directed, f *Factory) Node {
	n := gain{
		base: newBase(info, data, directed, f),
		gain: param.New(1),
	}
	n.sync()
	return &n
}

func (n *gain) sync() {
	if err := n.gain.Reset(n.directed.Commands(n.data, score.ParamGain)); err != nil {
		n.info.Logger.Warnf("gain %s: %v", n.data.ID, err)
	}
}

func (n *gain) Mount() {
	n.sync()
	n.base.Mount()
}

// Feed multiplies every ancestor sample by the gain value at the sample
// time.
func (n *gain) Feed(t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer {
	start := len(buffers)
	buffers = Feed(n.ancestors, t, count, buffers)
	seconds := t.Seconds()
	for _, b := range buffers[start:] {
		incr := 1 / float64(b.SampleRate)
		for c := 0; c < b.NumChannels(); c++ {
			ch := b.Channel(c)
			for i := range ch {
				ch[i] *= n.gain.ValueAt(seconds + incr*float64(i))
			}
		}
	}
	return buffers
}

func (n *gain) AcceptCommands(e *mutate.Effect) error {
	if e.ParamName != score.ParamGain {
		return &ParamError{Kind: n.data.Kind, Param: e.ParamName}
	}
	return e.Update(n.directed, n.data, n.gain)
}
