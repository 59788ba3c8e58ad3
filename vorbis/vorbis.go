// Package vorbis decodes ogg vorbis content.
package vorbis

import (
	"bytes"
	"fmt"

	"github.com/jfreymuth/oggvorbis"

	"github.com/dudk/nfplayer/signal"
)

// Decode decodes the whole ogg vorbis stream into a buffer at stream
// sample rate.
func Decode(data []byte) (*signal.Buffer, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read vorbis: %w", err)
	}
	if format.Channels == 0 {
		return signal.NewBuffer(0, 0, format.SampleRate), nil
	}

	interleaved := make([]float64, len(samples)-len(samples)%format.Channels)
	for i := range interleaved {
		interleaved[i] = float64(samples[i])
	}
	return signal.FromInterleaved(interleaved, format.Channels, format.SampleRate), nil
}
