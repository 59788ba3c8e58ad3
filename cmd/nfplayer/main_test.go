package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/nfplayer/signal"
	"github.com/dudk/nfplayer/wav"
)

const scoreJSON = `{
  "graph": {
    "id": "graph",
    "nodes": [
      {
        "id": "file",
        "kind": "com.nativeformat.plugin.file.file",
        "config": {"file": %q, "when": 0, "duration": 1000000000, "offset": 0}
      },
      {
        "id": "gain",
        "kind": "com.nativeformat.plugin.waa.gain",
        "params": {"gain": [{"name": "setValueAtTime", "args": {"value": 0.5, "startTime": 0}}]}
      }
    ],
    "edges": [{"id": "edge", "source": "file", "target": "gain"}]
  }
}`

const scoreYAML = `graph:
  id: graph
  nodes:
    - id: file
      kind: com.nativeformat.plugin.file.file
      config:
        file: %q
        when: 0
        duration: 1000000000
        offset: 0
`

// writeContent stores a second of constant mono signal.
func writeContent(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "content.wav")
	data := make([]float64, sampleRate)
	for i := range data {
		data[i] = 0.5
	}
	sink, err := wav.NewSink(path, sampleRate, 1, signal.BitDepth16)
	require.NoError(t, err)
	require.NoError(t, sink.Sink(signal.FromFloat64(signal.Float64{data}, sampleRate)))
	require.NoError(t, sink.Flush())
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	content := writeContent(t, dir)

	tests := []struct {
		description string
		score       string
		file        string
		seek        string
		expected    float64
		samples     int
	}{
		{
			description: "json with gain",
			score:       scoreJSON,
			file:        "score.json",
			seek:        "0",
			expected:    0.25,
			samples:     4410,
		},
		{
			description: "yaml",
			score:       scoreYAML,
			file:        "score.yaml",
			seek:        "0",
			expected:    0.5,
			samples:     4410,
		},
		{
			description: "seek past content",
			score:       scoreJSON,
			file:        "score.json",
			seek:        "2",
			expected:    0,
			samples:     4410,
		},
	}

	for _, test := range tests {
		input := filepath.Join(dir, test.file)
		require.NoError(t, os.WriteFile(input, []byte(fmt.Sprintf(test.score, content)), 0o644), test.description)
		output := filepath.Join(dir, "out.wav")

		out, err := execute("save", "-i", input, "-o", output, "-d", "0.1", "-s", test.seek, "-q", "256")
		require.NoError(t, err, test.description)
		assert.Contains(t, out, "saved", test.description)

		data, err := os.ReadFile(output)
		require.NoError(t, err, test.description)
		b, err := wav.Decode(data)
		require.NoError(t, err, test.description)
		assert.Equal(t, channelCount, b.NumChannels(), test.description)
		assert.Equal(t, test.samples, b.Len(), test.description)
		for c := 0; c < b.NumChannels(); c++ {
			assert.InDelta(t, test.expected, b.Channel(c)[100], 0.001, test.description)
		}
	}
}

func TestSaveErrors(t *testing.T) {
	dir := t.TempDir()
	content := writeContent(t, dir)
	input := filepath.Join(dir, "score.json")
	require.NoError(t, os.WriteFile(input, []byte(fmt.Sprintf(scoreJSON, content)), 0o644))

	_, err := execute("save", "-i", input, "-o", filepath.Join(dir, "out.flac"))
	assert.ErrorIs(t, err, errOutputFormat)

	_, err = execute("save", "-i", filepath.Join(dir, "missing.json"), "-o", filepath.Join(dir, "out.wav"))
	assert.Error(t, err)

	_, err = execute("save", "-o", filepath.Join(dir, "out.wav"))
	assert.Error(t, err)
}

func TestReadScore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "score.yml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  id: graph\n"), 0o644))

	data, err := readScore(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"graph": {"id": "graph"}}`, string(data))
}
