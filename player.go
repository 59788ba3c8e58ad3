package nfplayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/mutate"
	"github.com/dudk/nfplayer/node"
	"github.com/dudk/nfplayer/render"
	"github.com/dudk/nfplayer/score"
)

// ErrScoreType is returned when enqueued score has unsupported type.
var ErrScoreType = errors.New("unsupported score type")

// Player is a facade over renderer.
type Player struct {
	renderer *render.Renderer
}

// New returns a new player over the renderer.
func New(r *render.Renderer) *Player {
	return &Player{renderer: r}
}

// Renderer returns underlying renderer.
func (p *Player) Renderer() *render.Renderer {
	return p.renderer
}

// SetJSON replaces all scores with the one provided and starts over from
// zero time.
func (p *Player) SetJSON(ctx context.Context, data []byte) error {
	p.renderer.DequeueScores()
	if err := p.EnqueueScore(ctx, data, true); err != nil {
		return err
	}
	// enqueue time-changed score at current time.
	if p.renderer.RenderedTime().Neq(instant.Zero) {
		return p.renderer.TimeChange(ctx, instant.Zero)
	}
	return nil
}

// JSON returns encoded score of the graph. If no id is provided, it
// returns array of all rendered scores.
func (p *Player) JSON(graphID ...string) ([]byte, error) {
	if len(graphID) == 0 {
		return json.Marshal(p.renderer.Scores())
	}
	return json.Marshal(p.renderer.Score(graphID[0]))
}

// Playing returns true if renderer is rendering.
func (p *Player) Playing() bool {
	return p.renderer.Playing()
}

// SetPlaying starts or stops rendering.
func (p *Player) SetPlaying(playing bool) {
	p.renderer.SetPlaying(playing)
}

// RenderTime returns time of the next rendered quantum.
func (p *Player) RenderTime() instant.Instant {
	return p.renderer.RenderedTime()
}

// Seek moves rendering to time t. It returns once content for the new
// time is loaded.
func (p *Player) Seek(ctx context.Context, t instant.Instant) error {
	return p.renderer.TimeChange(ctx, t)
}

// Description describes what every node plays at time t.
func (p *Player) Description(t instant.Instant) []node.Description {
	return p.renderer.Description(t)
}

// EnqueueMutation applies mutation and waits until it's done.
func (p *Player) EnqueueMutation(ctx context.Context, m mutate.Commands) error {
	return p.renderer.EnqueueEffect(ctx, m)
}

// EnqueueScore adds score to rendering. Score could be provided as
// *score.Score, JSON []byte or string. Scores are always copied, so
// changes made after the call don't affect rendering.
func (p *Player) EnqueueScore(ctx context.Context, s interface{}, fadeIn bool) error {
	var data []byte
	switch v := s.(type) {
	case *score.Score:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return fmt.Errorf("enqueue score: %w", err)
		}
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%w: %T", ErrScoreType, s)
	}

	parsed, err := score.Parse(data)
	if err != nil {
		return err
	}
	return p.renderer.EnqueueScore(ctx, parsed, fadeIn)
}

// DequeueScore removes score from rendering.
func (p *Player) DequeueScore(graphID string, fadeOut bool) {
	p.renderer.DequeueScore(graphID, fadeOut)
}

// DequeueScores removes all scores from rendering.
func (p *Player) DequeueScores() {
	p.renderer.DequeueScores()
}
