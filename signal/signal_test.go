package signal_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/nfplayer/signal"
)

const sampleRate = 44100

func filled(numChannels, length int, values ...float64) *signal.Buffer {
	b := signal.NewBuffer(numChannels, length, sampleRate)
	for c := 0; c < numChannels; c++ {
		ch := b.Channel(c)
		for i := range ch {
			ch[i] = values[c]
		}
	}
	return b
}

func sum(ch []float64) float64 {
	var s float64
	for _, v := range ch {
		s += v
	}
	return s
}

func TestMixdown(t *testing.T) {
	tests := []struct {
		description string
		dst         *signal.Buffer
		sources     []*signal.Buffer
		expected    signal.Float64
	}{
		{
			description: "mono upmix",
			dst:         signal.NewBuffer(2, 3, sampleRate),
			sources:     []*signal.Buffer{filled(1, 3, 1)},
			expected:    signal.Float64{{1, 1, 1}, {1, 1, 1}},
		},
		{
			description: "extra channels ignored",
			dst:         signal.NewBuffer(1, 2, sampleRate),
			sources:     []*signal.Buffer{filled(2, 2, 1, 5)},
			expected:    signal.Float64{{1, 1}},
		},
		{
			description: "sum of sources",
			dst:         signal.NewBuffer(2, 2, sampleRate),
			sources:     []*signal.Buffer{filled(2, 2, 1, 2), filled(2, 2, 0.5, 0.5)},
			expected:    signal.Float64{{1.5, 1.5}, {2.5, 2.5}},
		},
		{
			description: "shorter source",
			dst:         signal.NewBuffer(1, 3, sampleRate),
			sources:     []*signal.Buffer{filled(1, 2, 1)},
			expected:    signal.Float64{{1, 1, 0}},
		},
		{
			description: "no sources",
			dst:         signal.NewBuffer(1, 2, sampleRate),
			expected:    signal.Float64{{0, 0}},
		},
	}
	for _, test := range tests {
		result := signal.Mixdown(test.dst, test.sources)
		assert.Equal(t, test.expected, result.Float64(), test.description)
	}
}

func TestCopy(t *testing.T) {
	src := signal.FromFloat64(signal.Float64{{1, 2}}, sampleRate)
	dst := signal.NewBuffer(2, 3, sampleRate)
	signal.Copy(dst, src, 2)
	assert.Equal(t, signal.Float64{{0, 0, 1}, {0, 0, 1}}, dst.Float64())

	dst.ZeroOut()
	signal.Copy(dst, src, 5)
	assert.Equal(t, signal.Float64{{0, 0, 0}, {0, 0, 0}}, dst.Float64())
}

func TestChannelCopies(t *testing.T) {
	b := signal.NewBuffer(1, 4, sampleRate)
	b.CopyToChannel([]float64{1, 2, 3}, 0, 2)
	assert.Equal(t, []float64{0, 0, 1, 2}, b.Channel(0))

	dst := make([]float64, 3)
	b.CopyFromChannel(dst, 0, 2)
	assert.Equal(t, []float64{1, 2, 0}, dst)
}

func TestInterleaved(t *testing.T) {
	b := signal.FromFloat64(signal.Float64{{1, 2, 3}, {4, 5, 6}}, sampleRate)
	interleaved := b.Interleaved()
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, interleaved)
	assert.Equal(t, b.Float64(), signal.FromInterleaved(interleaved, 2, sampleRate).Float64())
}

func TestFades(t *testing.T) {
	q := 512
	in := filled(2, q, 1, 1)
	in.ApplyFadeIn()
	assert.Equal(t, 0.0, in.Channel(0)[0])
	s := sum(in.Channel(0))
	assert.True(t, s > 0.8*float64(q) && s < 0.9*float64(q), "fade in sum %v", s)

	out := filled(2, q, 1, 1)
	out.ApplyFadeOut()
	assert.Equal(t, 1.0, out.Channel(1)[0])
	s = sum(out.Channel(1))
	assert.True(t, s > 0.1*float64(q) && s < 0.8*float64(q), "fade out sum %v", s)
}

func TestInterIntsAsBuffer(t *testing.T) {
	tests := []struct {
		ints        []int
		numChannels int
		bitDepth    signal.BitDepth
		expected    signal.Float64
	}{
		{
			ints:        []int{1, 2, 1, 2, 1, 2, 1, 2},
			numChannels: 2,
			expected: signal.Float64{
				{1, 1, 1, 1},
				{2, 2, 2, 2},
			},
		},
		{
			ints:        []int{1, 2, 1, 2, 1},
			numChannels: 2,
			expected: signal.Float64{
				{1, 1, 1},
				{2, 2, 0},
			},
		},
		{
			ints:        []int{math.MaxInt16, math.MaxInt16 * 2},
			numChannels: 2,
			bitDepth:    signal.BitDepth16,
			expected: signal.Float64{
				{1},
				{2},
			},
		},
	}

	for _, test := range tests {
		result := signal.InterInt{Data: test.ints, NumChannels: test.numChannels, BitDepth: test.bitDepth}.AsBuffer(sampleRate)
		assert.Equal(t, test.expected, result.Float64())
	}
}

func TestAsInterInt(t *testing.T) {
	b := signal.FromFloat64(signal.Float64{{1, -2}, {0, 0.5}}, sampleRate)
	ints := b.AsInterInt(signal.BitDepth8)
	assert.Equal(t, []int{126, 0, -126, 63}, ints.Data)
	assert.Equal(t, 2, ints.NumChannels)
}

func TestPool(t *testing.T) {
	p := signal.GetPool(2, 4)
	assert.Same(t, p, signal.GetPool(2, 4))
	assert.NotSame(t, p, signal.GetPool(1, 4))

	b := p.Get(sampleRate)
	assert.Equal(t, 2, b.NumChannels())
	assert.Equal(t, 4, b.Len())
	b.Channel(0)[0] = 1
	p.Put(b)
	p.Put(signal.NewBuffer(1, 4, sampleRate))

	// reused buffers are zeroed.
	reused := p.Get(48000)
	assert.Equal(t, 48000, reused.SampleRate)
	assert.Equal(t, signal.Float64{{0, 0, 0, 0}, {0, 0, 0, 0}}, reused.Float64())
}
