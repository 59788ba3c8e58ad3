// Package signal provides the PCM buffer used across the renderer. It allows to:
//	- copy and mix planar buffers of different shapes
//	- convert interleaved data to planar and back
//	- apply click-free fades
//	- convert bit depth for int signals
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal.
type Float64 [][]float64

// Buffer is a planar PCM buffer. All channels have equal length.
type Buffer struct {
	SampleRate int
	data       Float64
}

// NewBuffer returns a silent buffer of specified dimensions.
func NewBuffer(numChannels, length, sampleRate int) *Buffer {
	return &Buffer{
		SampleRate: sampleRate,
		data:       EmptyFloat64(numChannels, length),
	}
}

// FromFloat64 wraps planar data into buffer without copying.
func FromFloat64(data Float64, sampleRate int) *Buffer {
	return &Buffer{
		SampleRate: sampleRate,
		data:       data,
	}
}

// NumChannels returns number of channels in the buffer.
func (b *Buffer) NumChannels() int {
	return b.data.NumChannels()
}

// Len returns number of samples in a single channel.
func (b *Buffer) Len() int {
	return b.data.Size()
}

// Duration returns time duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	return DurationOf(b.SampleRate, int64(b.Len()))
}

// Channel returns mutable samples of the channel.
func (b *Buffer) Channel(i int) []float64 {
	return b.data[i]
}

// Float64 returns underlying planar data.
func (b *Buffer) Float64() Float64 {
	return b.data
}

// CopyToChannel copies src into the channel starting at start position.
// Samples that don't fit are dropped.
func (b *Buffer) CopyToChannel(src []float64, channel, start int) {
	if start < 0 || start >= b.Len() {
		return
	}
	copy(b.data[channel][start:], src)
}

// CopyFromChannel copies samples of the channel starting at start position
// into dst. Copy is truncated to the shorter side.
func (b *Buffer) CopyFromChannel(dst []float64, channel, start int) {
	if start < 0 || start >= b.Len() {
		return
	}
	copy(dst, b.data[channel][start:])
}

// ZeroOut sets all samples to zero.
func (b *Buffer) ZeroOut() {
	for _, ch := range b.data {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// Interleaved returns a new interleaved copy of the buffer.
func (b *Buffer) Interleaved() []float64 {
	numChannels := b.NumChannels()
	result := make([]float64, b.Len()*numChannels)
	for c, ch := range b.data {
		for i := range ch {
			result[i*numChannels+c] = ch[i]
		}
	}
	return result
}

// FromInterleaved creates a planar buffer from interleaved data.
// Trailing samples of incomplete frame are dropped.
func FromInterleaved(data []float64, numChannels, sampleRate int) *Buffer {
	length := len(data) / numChannels
	b := NewBuffer(numChannels, length, sampleRate)
	for c := range b.data {
		for i := 0; i < length; i++ {
			b.data[c][i] = data[i*numChannels+c]
		}
	}
	return b
}

// Copy copies src into dst starting at start position of dst. If src has
// fewer channels, the last src channel is used for the rest of dst
// channels. Extra src channels are ignored. Copy is truncated to the
// shorter side.
func Copy(dst, src *Buffer, start int) {
	if src.NumChannels() == 0 {
		return
	}
	for c := 0; c < dst.NumChannels(); c++ {
		sc := c
		if sc >= src.NumChannels() {
			sc = src.NumChannels() - 1
		}
		dst.CopyToChannel(src.data[sc], c, start)
	}
}

// Mixdown sums sources into dst. Mono sources are upmixed by using their
// first channel for every dst channel, extra source channels are ignored.
func Mixdown(dst *Buffer, sources []*Buffer) *Buffer {
	for _, src := range sources {
		if src.NumChannels() == 0 {
			continue
		}
		for c, dch := range dst.data {
			sc := c
			if sc >= src.NumChannels() {
				sc = 0
			}
			sch := src.data[sc]
			n := len(sch)
			if n > len(dch) {
				n = len(dch)
			}
			for i := 0; i < n; i++ {
				dch[i] += sch[i]
			}
		}
	}
	return dst
}

// ApplyFadeIn applies exponential fade-in over the whole buffer.
func (b *Buffer) ApplyFadeIn() {
	b.applyTarget(0, 1, float64(b.Len())/10)
}

// ApplyFadeOut applies exponential fade-out over the whole buffer.
func (b *Buffer) ApplyFadeOut() {
	b.applyTarget(1, 0, float64(b.Len())/4)
}

func (b *Buffer) applyTarget(v0, v1, timeConstant float64) {
	for _, ch := range b.data {
		for i := range ch {
			ch[i] *= TargetValueAt(float64(i), v0, v1, 0, timeConstant)
		}
	}
}

// TargetValueAt returns value of exponential approach from v0 to v1 which
// started at t0: v1 + (v0-v1)*e^((t0-t)/timeConstant).
func TargetValueAt(t, v0, v1, t0, timeConstant float64) float64 {
	if t <= t0 {
		return v0
	}
	return v1 + (v0-v1)*math.Exp((t0-t)/timeConstant)
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// EmptyFloat64 returns an empty buffer of specified dimentions.
func EmptyFloat64(numChannels int, bufferSize int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns number of channels in this sample slice
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of samples in single block in this sample slice
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Append buffers set to existing one one
// new buffer is returned if b is nil
func (floats Float64) Append(source Float64) Float64 {
	if floats == nil {
		floats = make([][]float64, source.NumChannels())
		for i := range floats {
			floats[i] = make([]float64, 0, source.Size())
		}
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}
