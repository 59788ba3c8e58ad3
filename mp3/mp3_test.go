package mp3_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/nfplayer/mp3"
	"github.com/dudk/nfplayer/signal"
)

func TestSinkDecode(t *testing.T) {
	sampleRate := 44100
	length := sampleRate / 2
	b := signal.NewBuffer(2, length, sampleRate)
	tone := make([]float64, length)
	for i := range tone {
		tone[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}
	b.CopyToChannel(tone, 0, 0)
	b.CopyToChannel(tone, 1, 0)

	path := filepath.Join(t.TempDir(), "out.mp3")
	sink, err := mp3.NewSink(path, sampleRate, 2, 192, 2)
	require.NoError(t, err)
	require.NoError(t, sink.Sink(b))
	require.NoError(t, sink.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := mp3.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.NumChannels())
	assert.Equal(t, sampleRate, decoded.SampleRate)
	// encoder adds padding frames.
	assert.GreaterOrEqual(t, decoded.Len(), length)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := mp3.Decode(nil)
	assert.Error(t, err)
}
