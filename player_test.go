package nfplayer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/nfplayer"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/log"
	"github.com/dudk/nfplayer/mutate"
	"github.com/dudk/nfplayer/node"
	"github.com/dudk/nfplayer/render"
	"github.com/dudk/nfplayer/score"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPlayer() *nfplayer.Player {
	return nfplayer.New(render.New(node.Info{
		SampleRate:  44100,
		QuantumSize: 256,
		Logger:      log.Discard(),
	}))
}

func scores(t *testing.T, p *nfplayer.Player) []score.Score {
	t.Helper()
	data, err := p.JSON()
	require.NoError(t, err)
	var result []score.Score
	require.NoError(t, json.Unmarshal(data, &result))
	return result
}

// mutate applies mutation while player renders.
func mutateRendering(t *testing.T, p *nfplayer.Player, m mutate.Commands) {
	t.Helper()
	result := make(chan error)
	go func() {
		result <- p.EnqueueMutation(context.Background(), m)
	}()
	for {
		p.Renderer().Render()
		select {
		case err := <-result:
			require.NoError(t, err)
			return
		default:
		}
	}
}

func TestPushCommands(t *testing.T) {
	p := newPlayer()
	p.SetPlaying(true)
	n := score.NewStretchNode()
	s := score.New()
	s.Add(n)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, p.SetJSON(context.Background(), data))

	cmd := score.SetValueAtTime(1, instant.FromSeconds(1))
	mutateRendering(t, p, mutate.Push("", n.ID, score.ParamStretch, cmd))

	result := scores(t, p)
	require.Len(t, result, 1)
	assert.Equal(t, []score.Command{cmd}, result[0].Graph.Nodes[0].Params[score.ParamStretch])
}

func TestClearCommands(t *testing.T) {
	p := newPlayer()
	p.SetPlaying(true)
	n := score.NewStretchNode(score.SetValueAtTime(1, instant.FromSeconds(1)))
	s := score.New()
	s.Add(n)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, p.SetJSON(context.Background(), data))

	mutateRendering(t, p, mutate.Clear(s.Graph.ID, n.ID, score.ParamStretch))

	assert.Len(t, s.Graph.Nodes[0].Params[score.ParamStretch], 1)
	result := scores(t, p)
	require.Len(t, result, 1)
	assert.Empty(t, result[0].Graph.Nodes[0].Params[score.ParamStretch])
}

func TestEnqueueDequeue(t *testing.T) {
	p := newPlayer()
	ctx := context.Background()
	g := score.NewGainNode()
	s := score.New()
	s.Add(g)
	require.NoError(t, p.EnqueueScore(ctx, s, true))
	prevID := s.Graph.ID

	// same nodes in a new graph.
	s.Graph.ID = score.NewID()
	l := score.NewLoopNode(instant.Zero, instant.FromSeconds(1), score.InfiniteLoop)
	s.Add(l)
	s.Connect(g, l)

	require.NoError(t, p.EnqueueScore(ctx, s, true))
	p.DequeueScore(prevID, true)

	result := scores(t, p)
	require.Len(t, result, 1)
	expected, err := json.Marshal(s)
	require.NoError(t, err)
	actual, err := json.Marshal(result[0])
	require.NoError(t, err)
	assert.JSONEq(t, string(expected), string(actual))

	data, err := p.JSON(s.Graph.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(expected), string(data))
	data, err = p.JSON(prevID)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestSetJSON(t *testing.T) {
	p := newPlayer()
	ctx := context.Background()
	s := score.New()
	s.Add(score.NewGainNode())
	require.NoError(t, p.EnqueueScore(ctx, s, true))

	p.SetPlaying(true)
	p.Renderer().Render()
	p.Renderer().Render()
	assert.True(t, p.RenderTime().Gt(instant.Zero))

	replacement := score.New()
	replacement.Add(score.NewGainNode())
	data, err := json.Marshal(replacement)
	require.NoError(t, err)
	require.NoError(t, p.SetJSON(ctx, data))
	assert.Equal(t, instant.Zero, p.RenderTime())

	// dequeue is processed with the next quantum.
	p.Renderer().Render()
	result := scores(t, p)
	require.Len(t, result, 1)
	assert.Equal(t, replacement.Graph.ID, result[0].Graph.ID)
	assert.True(t, p.Playing())
}

func TestEnqueueScore(t *testing.T) {
	p := newPlayer()
	ctx := context.Background()
	s := score.New()
	s.Add(score.NewGainNode())
	data, err := json.Marshal(s)
	require.NoError(t, err)

	require.NoError(t, p.EnqueueScore(ctx, string(data), true))
	// changes after enqueue don't affect rendering.
	s.Graph.Nodes[0].Params[score.ParamGain] = []score.Command{score.SetValueAtTime(0, instant.Zero)}
	result := scores(t, p)
	require.Len(t, result, 1)
	assert.Empty(t, result[0].Graph.Nodes[0].Params[score.ParamGain])

	err = p.EnqueueScore(ctx, 42, true)
	assert.True(t, errors.Is(err, nfplayer.ErrScoreType))
	assert.Error(t, p.EnqueueScore(ctx, []byte(`{"graph":`), true))

	p.DequeueScores()
	assert.Empty(t, scores(t, p))
	assert.Empty(t, p.Description(instant.Zero))
}
