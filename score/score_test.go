package score_test

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/score"
)

func fixture() *score.Score {
	f := score.NewFileNode("test:audio", instant.Zero, instant.FromSeconds(1), instant.Zero)
	f.ID = "file"
	g := score.NewGainNode(score.SetValueAtTime(0.5, instant.FromSeconds(1)))
	g.ID = "gain"
	s := score.New()
	s.Graph.ID = "graph"
	s.Add(f, g)
	s.Connect(f, g)
	s.Graph.Edges[0].ID = "edge"
	return s
}

func TestScoreJSON(t *testing.T) {
	data, err := json.MarshalIndent(fixture(), "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "score", data)

	parsed, err := score.Parse(data)
	require.NoError(t, err)
	again, err := json.MarshalIndent(parsed, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestParse(t *testing.T) {
	s, err := score.Parse([]byte(`{"graph":{"id":"g"},"version":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, "g", s.Graph.ID)
	assert.NotNil(t, s.Graph.Nodes)
	assert.NotNil(t, s.Graph.Edges)

	_, err = score.Parse([]byte(`{"graph":`))
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	s, err := fixture().Clone()
	require.NoError(t, err)
	n := s.Graph.Nodes[0]

	uri, ok := n.String(score.ConfigFile)
	assert.True(t, ok)
	assert.Equal(t, "test:audio", uri)

	duration, ok := n.Int64(score.ConfigDuration)
	assert.True(t, ok)
	assert.Equal(t, int64(1e9), duration)

	_, ok = n.Int64(score.ConfigLoopCount)
	assert.False(t, ok)
	_, ok = n.String(score.ConfigWhen)
	assert.False(t, ok)
}

func TestDirected(t *testing.T) {
	a, b, c, d := score.NewGainNode(), score.NewGainNode(), score.NewGainNode(), score.NewGainNode()
	s := score.New()
	s.Add(a, b, c, d)
	// diamond: a -> b, a -> c, b -> d, c -> d
	s.Connect(a, b)
	s.Connect(a, c)
	s.Connect(b, d)
	s.Connect(c, d)
	dir := score.NewDirected(s)

	assert.Equal(t, s.Graph.ID, dir.GraphID())
	leaves := dir.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, d.ID, leaves[0].ID)

	incoming := dir.IncomingEdges(d.ID)
	require.Len(t, incoming, 2)
	assert.Equal(t, b.ID, dir.Source(incoming[0]).ID)
	assert.Equal(t, c.ID, dir.Source(incoming[1]).ID)
	assert.Equal(t, d.ID, dir.Target(incoming[0]).ID)
	assert.Len(t, dir.OutgoingEdges(a.ID), 2)
	assert.Empty(t, dir.IncomingEdges(a.ID))
	assert.Nil(t, dir.ByID("missing"))
	assert.Equal(t, a.ID, dir.ByID(a.ID).ID)
}

func TestUpdateCommands(t *testing.T) {
	dir := score.NewDirected(fixture())
	n := dir.ByID("gain")
	push := func(cmds []score.Command) []score.Command {
		return append(cmds, score.SetValueAtTime(1, instant.FromSeconds(2)))
	}

	cmds := dir.UpdateCommands(n, score.ParamGain, "first", push)
	assert.Len(t, cmds, 2)
	// same key is applied once.
	cmds = dir.UpdateCommands(n, score.ParamGain, "first", push)
	assert.Len(t, cmds, 2)
	cmds = dir.UpdateCommands(n, score.ParamGain, "second", push)
	assert.Len(t, cmds, 3)
	assert.Len(t, dir.Commands(n, score.ParamGain), 3)

	data, err := json.Marshal(dir)
	require.NoError(t, err)
	s, err := score.Parse(data)
	require.NoError(t, err)
	assert.Len(t, s.Graph.Nodes[1].Params[score.ParamGain], 3)

	cmds = dir.UpdateCommands(n, score.ParamGain, "clear", func([]score.Command) []score.Command {
		return []score.Command{}
	})
	assert.Empty(t, cmds)
}
