package node

import (
	"context"
	"math"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/mutate"
	"github.com/dudk/nfplayer/param"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
	"github.com/dudk/nfplayer/stretch"
)

// timeStretch changes tempo and pitch of its ancestors. Stretch of 0.5
// plays the audio in half the time, pitch ratio of 2 doubles the
// frequency. Formant ratio is accepted but has no effect.
type timeStretch struct {
	base
	stretch *param.Param
	pitch   *param.Param

	engine   stretch.Stretcher
	prevFeed instant.Instant
	// position of the next ancestors pull in samples.
	requested float64
}

func newStretch(info Info, data *score.Node, directed *score.Directed, f *Factory) Node {
	n := timeStretch{
		base:    newBase(info, data, directed, f),
		stretch: param.New(1),
		pitch:   param.New(1),
	}
	n.sync()
	return &n
}

func (n *timeStretch) sync() {
	if err := n.stretch.Reset(n.directed.Commands(n.data, score.ParamStretch)); err != nil {
		n.info.Logger.Warnf("stretch %s: %v", n.data.ID, err)
	}
	if err := n.pitch.Reset(n.directed.Commands(n.data, score.ParamPitchRatio)); err != nil {
		n.info.Logger.Warnf("stretch %s: %v", n.data.ID, err)
	}
}

func (n *timeStretch) Mount() {
	n.sync()
	n.base.Mount()
}

func (n *timeStretch) TimeChange(ctx context.Context, t instant.Instant, c *cache.Cache) error {
	dilated := t.Scale(ratio(n.stretch.ValueAt(t.Seconds())))
	err := n.base.TimeChange(ctx, dilated, c)

	n.prevFeed = t
	n.requested = n.estimate(t, n.info.QuantumSize)
	n.engine = n.info.Stretcher(n.info.SampleRate)
	n.info.Logger.Debugf("stretch %s: time change to %v, dilated %v, requested samples %f", n.data.ID, t, dilated, n.requested)
	return err
}

// estimate returns number of ancestor samples consumed to render until
// time t with quanta of size q.
func (n *timeStretch) estimate(t instant.Instant, q int) float64 {
	hz := n.info.SampleRate
	frame := instant.FromSamples(int64(q), hz)
	samples := t.Samples(hz)

	var received int64
	var required float64
	for received < samples {
		start := instant.FromSamples(received, hz)
		stretchValue, pitchValue := n.average(start, start.Add(frame))
		tempo := (1 / stretchValue) / pitchValue
		rate := pitchValue
		required += float64(q) * tempo * rate
		received += int64(q)
	}
	return required
}

// average returns stretch and pitch values averaged over the frame.
func (n *timeStretch) average(start, end instant.Instant) (float64, float64) {
	s, e := start.Seconds(), end.Seconds()
	stretchValue := (n.stretch.ValueAt(s) + n.stretch.ValueAt(e)) / 2
	pitchValue := (n.pitch.ValueAt(s) + n.pitch.ValueAt(e)) / 2
	return ratio(stretchValue), ratio(pitchValue)
}

// ratio replaces values the engine can't work with by unit ratio.
func ratio(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v
}

func (n *timeStretch) Feed(t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer {
	hz := n.info.SampleRate
	stretchValue, pitchValue := n.average(t, t.Add(instant.FromSamples(int64(count), hz)))

	if t.Samples(hz) < n.prevFeed.Samples(hz) {
		// went back in time, ancestors must be pulled from the new position.
		n.requested = n.estimate(t, count)
		n.engine.Clear()
		n.info.Logger.Debugf("stretch %s: feed moved back to %v, requested samples %f", n.data.ID, t, n.requested)
	}

	n.engine.SetPitch(pitchValue)
	n.engine.SetTempo(1 / stretchValue)

	out := make([]float64, count*stretch.Channels)
	pool := signal.GetPool(stretch.Channels, count)
	received := 0
	for received < count {
		got := n.engine.ReceiveSamples(out[received*stretch.Channels:])
		received += got
		if got > 0 {
			continue
		}

		pulled := Feed(n.ancestors, instant.FromSamples(int64(math.Round(n.requested)), hz), count, nil)
		scratch := signal.Mixdown(pool.Get(hz), pulled)
		n.requested += float64(count)
		n.engine.PutSamples(scratch.Interleaved())
		pool.Put(scratch)
	}

	n.prevFeed = t
	return append(buffers, signal.FromInterleaved(out, stretch.Channels, hz))
}

func (n *timeStretch) Describe(t instant.Instant, descs []Description) []Description {
	ancestorTime := instant.FromSamples(int64(math.Round(n.requested)), n.info.SampleRate)
	descs = append(descs, Description{
		ID:   n.data.ID,
		Kind: n.data.Kind,
		Time: ancestorTime,
	})
	return Describe(n.ancestors, ancestorTime, descs)
}

func (n *timeStretch) AcceptCommands(e *mutate.Effect) error {
	switch e.ParamName {
	case score.ParamStretch:
		return e.Update(n.directed, n.data, n.stretch)
	case score.ParamPitchRatio:
		return e.Update(n.directed, n.data, n.pitch)
	case score.ParamFormantRatio:
		return e.Update(n.directed, n.data, nil)
	default:
		return &ParamError{Kind: n.data.Kind, Param: e.ParamName}
	}
}

func (n *timeStretch) Unmount() {
	if n.engine != nil {
		n.engine.Clear()
	}
	n.base.Unmount()
}
