// Package stretch defines the time-stretch engine used by stretch nodes
// and provides a default resampling implementation.
package stretch

import "math"

// Channels is the number of interleaved channels every engine works with.
const Channels = 2

// Stretcher is a time-stretch engine. Input and output are interleaved
// stereo samples. Engines follow the virtual tempo/pitch model: tempo
// changes playback speed, pitch changes frequency, and input is consumed
// at tempo rate.
type Stretcher interface {
	SetTempo(tempo float64)
	SetPitch(pitch float64)
	// PutSamples queues interleaved input frames.
	PutSamples(interleaved []float64)
	// ReceiveSamples processes queued input and fills dst with up to
	// len(dst)/Channels frames. It returns number of frames received.
	ReceiveSamples(dst []float64) int
	// Clear drops all queued input and output.
	Clear()
}

// Factory creates a new engine for the sample rate.
type Factory func(sampleRate int) Stretcher

// Resampler is a variable-rate engine: it reads input with cubic
// interpolation at tempo speed. Pitch follows the speed change.
type Resampler struct {
	sampleRate int
	tempo      float64
	pitch      float64
	in         []float64
	// read position in frames relative to the first queued frame.
	pos float64
}

// NewResampler returns engine with unit tempo and pitch.
func NewResampler(sampleRate int) Stretcher {
	return &Resampler{
		sampleRate: sampleRate,
		tempo:      1,
		pitch:      1,
	}
}

// SetTempo sets playback speed. Non-positive values are ignored.
func (r *Resampler) SetTempo(tempo float64) {
	if tempo > 0 && !math.IsInf(tempo, 1) {
		r.tempo = tempo
	}
}

// SetPitch sets pitch ratio. Resampler can't shift pitch independently,
// so the value is only kept.
func (r *Resampler) SetPitch(pitch float64) {
	if pitch > 0 && !math.IsInf(pitch, 1) {
		r.pitch = pitch
	}
}

// PutSamples queues interleaved input frames.
func (r *Resampler) PutSamples(interleaved []float64) {
	r.in = append(r.in, interleaved...)
}

// ReceiveSamples fills dst with interpolated frames.
func (r *Resampler) ReceiveSamples(dst []float64) int {
	frames := len(dst) / Channels
	queued := len(r.in) / Channels
	received := 0
	for received < frames {
		i := int(r.pos)
		// cubic interpolation needs two frames ahead.
		if i+2 >= queued {
			break
		}
		x := r.pos - float64(i)
		for c := 0; c < Channels; c++ {
			y0 := r.in[c]
			if i > 0 {
				y0 = r.in[(i-1)*Channels+c]
			}
			dst[received*Channels+c] = CubicInterpolate(
				y0,
				r.in[i*Channels+c],
				r.in[(i+1)*Channels+c],
				r.in[(i+2)*Channels+c],
				x,
			)
		}
		received++
		r.pos += r.tempo
	}

	// keep one frame of history for the next interpolation.
	if drop := int(r.pos) - 1; drop > 0 {
		if drop > queued {
			drop = queued
		}
		r.in = append(r.in[:0], r.in[drop*Channels:]...)
		r.pos -= float64(drop)
	}
	return received
}

// Clear drops queued input and resets read position.
func (r *Resampler) Clear() {
	r.in = r.in[:0]
	r.pos = 0
}

// CubicInterpolate performs Catmull-Rom spline interpolation between y1
// and y2 at position x in [0, 1).
func CubicInterpolate(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}
