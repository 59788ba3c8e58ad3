package wav_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/nfplayer/signal"
	"github.com/dudk/nfplayer/wav"
)

const sampleRate = 44100

func TestSinkDecode(t *testing.T) {
	tests := []struct {
		description string
		bitDepth    signal.BitDepth
		in          signal.Float64
	}{
		{
			description: "16 bit stereo",
			bitDepth:    signal.BitDepth16,
			in:          signal.Float64{{0, 0.5, -0.5, 1}, {0.25, -0.25, 0.75, -1}},
		},
		{
			description: "32 bit mono",
			bitDepth:    signal.BitDepth32,
			in:          signal.Float64{{0, 0.1, 0.2, 0.3, 0.4}},
		},
		{
			description: "clipped",
			bitDepth:    signal.BitDepth16,
			in:          signal.Float64{{2, -2}},
		},
	}

	for _, test := range tests {
		path := filepath.Join(t.TempDir(), "out.wav")
		sink, err := wav.NewSink(path, sampleRate, test.in.NumChannels(), test.bitDepth)
		require.NoError(t, err, test.description)
		require.NoError(t, sink.Sink(signal.FromFloat64(test.in, sampleRate)), test.description)
		require.NoError(t, sink.Flush(), test.description)

		data, err := os.ReadFile(path)
		require.NoError(t, err, test.description)
		b, err := wav.Decode(data)
		require.NoError(t, err, test.description)
		assert.Equal(t, test.in.NumChannels(), b.NumChannels(), test.description)
		assert.Equal(t, test.in.Size(), b.Len(), test.description)
		for c := range test.in {
			for i, v := range test.in[c] {
				if v > 1 {
					v = 1
				} else if v < -1 {
					v = -1
				}
				assert.InDelta(t, v, b.Channel(c)[i], 0.001, test.description)
			}
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := wav.Decode([]byte("not a wav"))
	assert.ErrorIs(t, err, wav.ErrInvalidFile)

	_, err = wav.NewSink(filepath.Join(t.TempDir(), "out.wav"), sampleRate, 2, signal.BitDepth8)
	assert.ErrorIs(t, err, wav.ErrUnsupportedBitDepth)
}
