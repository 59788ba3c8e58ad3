package node

import (
	"context"
	"math"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
)

// loop repeats the window [when, when+duration) of its ancestors
// loopCount times, or forever if loopCount is score.InfiniteLoop.
// Samples after a finite loop are shifted by the looped duration.
type loop struct {
	base
	when      instant.Instant
	duration  instant.Instant
	loopCount int64
}

func newLoop(info Info, data *score.Node, directed *score.Directed, f *Factory) Node {
	n := loop{base: newBase(info, data, directed, f)}
	n.when = nanos(data, score.ConfigWhen)
	n.duration = nanos(data, score.ConfigDuration)
	n.loopCount = score.InfiniteLoop
	if c, ok := data.Int64(score.ConfigLoopCount); ok {
		n.loopCount = c
	}
	return &n
}

// TimeChange prepares ancestors at the dilated time.
func (n *loop) TimeChange(ctx context.Context, t instant.Instant, c *cache.Cache) error {
	hz := n.info.SampleRate
	return n.base.TimeChange(ctx, instant.FromSamples(n.DilateSampleIndex(t.Samples(hz)), hz), c)
}

// DilateSampleIndex maps output sample index to the ancestor sample
// index.
func (n *loop) DilateSampleIndex(i int64) int64 {
	hz := n.info.SampleRate
	start := n.when.Samples(hz)
	duration := n.duration.Samples(hz)
	if i < start || duration <= 0 {
		return i
	}

	if n.loopCount > 0 {
		looped := duration * n.loopCount
		if i >= start+looped {
			return i - (looped - duration)
		}
	}
	return (i-start)%duration + start
}

// NextSampleCount returns number of samples that can be pulled from
// ancestors at once starting from output sample index i. Pulls never
// cross loop boundaries.
func (n *loop) NextSampleCount(i, count int64) int64 {
	hz := n.info.SampleRate
	start := n.when.Samples(hz)
	duration := n.duration.Samples(hz)
	if duration <= 0 {
		return count
	}

	dilated := n.DilateSampleIndex(i)
	loopEnd := start + duration
	inLoop := i >= start
	if n.loopCount > 0 {
		inLoop = inLoop && i < start+duration*n.loopCount
	}

	switch {
	case inLoop && dilated+count > loopEnd:
		// loop wraps within this pull.
		return loopEnd - dilated
	case !inLoop && start > i && start < i+count:
		// loop starts within this pull.
		return start - i
	default:
		return count
	}
}

// Feed stitches sub-pulls of ancestors split at loop boundaries.
func (n *loop) Feed(t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer {
	hz := n.info.SampleRate
	out := signal.NewBuffer(n.info.ChannelCount, count, hz)
	i := t.Samples(hz)
	received := 0
	for received < count {
		c := int(n.NextSampleCount(i, int64(count-received)))
		if c <= 0 {
			break
		}
		pulled := Feed(n.ancestors, instant.FromSamples(n.DilateSampleIndex(i), hz), c, nil)
		chunk := signal.Mixdown(signal.NewBuffer(n.info.ChannelCount, c, hz), pulled)
		signal.Copy(out, chunk, received)
		received += c
		i += int64(c)
	}
	return append(buffers, out)
}

func (n *loop) Describe(t instant.Instant, descs []Description) []Description {
	hz := n.info.SampleRate
	loopsSinceStart := math.Floor(t.Sub(n.when).Div(n.duration))
	if math.IsNaN(loopsSinceStart) || math.IsInf(loopsSinceStart, 0) {
		loopsSinceStart = 0
	}
	currentStart := n.when
	if loopsSinceStart >= 0 {
		currentStart = n.when.Add(n.duration.Scale(loopsSinceStart))
	}

	// same time ancestors are fed at.
	ancestorTime := instant.FromSamples(n.DilateSampleIndex(t.Samples(hz)), hz)
	descs = append(descs, Description{
		ID:   n.data.ID,
		Kind: n.data.Kind,
		Time: ancestorTime,
		Loop: &LoopDescription{
			LoopsSinceStart:  loopsSinceStart,
			CurrentLoopStart: currentStart,
			CurrentLoopEnd:   currentStart.Add(n.duration),
			LoopElapsed:      t.Sub(currentStart),
			Infinite:         n.loopCount == score.InfiniteLoop,
		},
	})
	return Describe(n.ancestors, ancestorTime, descs)
}
