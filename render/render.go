// Package render drives destinations of enqueued scores and mixes them
// into quanta of audio.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/log"
	"github.com/dudk/nfplayer/metric"
	"github.com/dudk/nfplayer/mutate"
	"github.com/dudk/nfplayer/node"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
)

// Defaults of renderer info.
const (
	DefaultQuantumSize  = 8192
	DefaultSampleRate   = 44100
	DefaultChannelCount = 2
)

var (
	// ErrGraphNotFound is returned when mutation targets graph that isn't
	// enqueued.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrNodeNotFound is returned when none of targeted graphs has the
	// mutated node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrRendering is returned when operation requires stopped renderer.
	ErrRendering = errors.New("renderer is rendering")
)

// State of rendering.
type State int

// Rendering states. Starting and Stopping last for a single quantum
// which is faded in or out.
const (
	Stopped State = iota
	Starting
	Playing
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Playing:
		return "playing"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type (
	// Renderer renders enqueued scores quantum by quantum. Render calls
	// are synchronous and never wait for content: destinations are
	// time-changed and loaded aside and swapped in when ready.
	Renderer struct {
		info        node.Info
		factory     *node.Factory
		autoRolloff bool
		logger      log.Logger
		meter       *metric.Meter

		mu             sync.Mutex
		cache          *cache.Cache
		state          State
		samplesElapsed int64
		effects        []queuedEffect
		enqueued       []enqueued
		dequeued       []dequeued
		destinations   []*node.Destination
	}

	queuedEffect struct {
		effect *mutate.Effect
		result chan error
	}

	enqueued struct {
		destination *node.Destination
		rolloff     bool
	}

	dequeued struct {
		graphID string
		rolloff bool
	}
)

// Option configures the renderer.
type Option func(*Renderer)

// WithAutoRolloff sets if quanta are faded when playback starts or stops
// and scores are enqueued or dequeued. It's enabled by default.
func WithAutoRolloff(enabled bool) Option {
	return func(r *Renderer) {
		r.autoRolloff = enabled
	}
}

// WithContentCache sets the content cache. It's useful to share the
// cache between renderers or to preload content.
func WithContentCache(c *cache.Cache) Option {
	return func(r *Renderer) {
		r.cache = c
	}
}

// WithLogger sets renderer logger. Nodes log with the same logger.
func WithLogger(l log.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithMetric enables metering of render time of every quantum against
// its playback duration.
func WithMetric() Option {
	return func(r *Renderer) {
		r.meter = metric.NewMeter(r, r.info.SampleRate)
	}
}

// New creates a stopped renderer. Zero values of the info are replaced
// with defaults.
func New(info node.Info, options ...Option) *Renderer {
	if info.SampleRate == 0 {
		info.SampleRate = DefaultSampleRate
	}
	if info.QuantumSize == 0 {
		info.QuantumSize = DefaultQuantumSize
	}
	if info.ChannelCount == 0 {
		info.ChannelCount = DefaultChannelCount
	}
	r := Renderer{
		info:        info,
		autoRolloff: true,
		logger:      info.Logger,
	}
	for _, option := range options {
		option(&r)
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	if r.cache == nil {
		r.cache = cache.New(cache.WithLogger(r.logger))
	}
	if r.info.Logger == nil {
		r.info.Logger = r.logger
	}
	r.factory = node.NewFactory(r.info)
	r.info = r.factory.Info()
	return &r
}

// Info returns rendering environment.
func (r *Renderer) Info() node.Info {
	return r.info
}

// State returns current rendering state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Playing returns true unless renderer is stopped.
func (r *Renderer) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing()
}

func (r *Renderer) playing() bool {
	return r.state != Stopped
}

// SetPlaying starts or stops rendering. Transitions complete with the
// next rendered quantum.
func (r *Renderer) SetPlaying(playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.state
	switch {
	case prev == Playing && !playing:
		r.state = Stopping
	case prev == Stopped && playing:
		r.state = Starting
	case prev == Starting && !playing:
		r.state = Stopped
	case prev == Stopping && playing:
		r.state = Starting
	}
	if prev != r.state {
		r.logger.Debugf("renderer: %v -> %v", prev, r.state)
	}
}

// RenderedTime returns time of the next quantum.
func (r *Renderer) RenderedTime() instant.Instant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderedTime()
}

func (r *Renderer) elapsed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samplesElapsed
}

func (r *Renderer) renderedTime() instant.Instant {
	return instant.FromSamples(r.samplesElapsed, r.info.SampleRate)
}

// UnsafelyReplaceContentCache replaces the content cache. It's only
// allowed when renderer is stopped.
func (r *Renderer) UnsafelyReplaceContentCache(c *cache.Cache) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Stopped {
		return fmt.Errorf("replace content cache: %w", ErrRendering)
	}
	r.cache = c
	return nil
}

// Render renders a single quantum. It returns nil if renderer is stopped.
func (r *Renderer) Render() *signal.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playing() {
		return nil
	}

	q := r.info.QuantumSize
	if r.meter != nil {
		defer r.meter.Start()(int64(q))
	}
	r.processEffects()
	buffers := r.processDequeued()

	t := r.renderedTime()
	for _, d := range r.destinations {
		buffers = d.Feed(t, q, buffers)
	}
	buffers = append(buffers, r.processEnqueued()...)

	out := signal.Mixdown(signal.NewBuffer(r.info.ChannelCount, q, r.info.SampleRate), buffers)
	switch r.state {
	case Starting:
		if r.autoRolloff {
			out.ApplyFadeIn()
		}
		r.state = Playing
	case Stopping:
		if r.autoRolloff {
			out.ApplyFadeOut()
		}
		r.state = Stopped
	}

	// stopping quantum is rendered too.
	r.samplesElapsed += int64(q)
	return out
}

// RenderDuration renders quanta until samples are rendered and returns
// them concatenated. Result is longer than requested if samples are not
// aligned with quantum size. Rendering ends early if renderer stops.
func (r *Renderer) RenderDuration(samples int64) *signal.Buffer {
	end := r.elapsed() + samples
	var quanta []*signal.Buffer
	for r.elapsed() < end {
		b := r.Render()
		if b == nil {
			break
		}
		quanta = append(quanta, b)
	}

	q := r.info.QuantumSize
	out := signal.NewBuffer(r.info.ChannelCount, len(quanta)*q, r.info.SampleRate)
	for i, b := range quanta {
		signal.Copy(out, b, i*q)
	}
	r.logger.Debugf("renderer: rendered %d samples", out.Len())
	return out
}

// EnqueueScore time-changes a new destination for the score and adds it
// to rendering once all its content is loaded. Rolloff fades the score in
// if renderer is playing.
func (r *Renderer) EnqueueScore(ctx context.Context, s *score.Score, rolloff bool) error {
	r.logger.Debugf("renderer: loading score %s", s.Graph.ID)
	d := node.NewDestination(r.factory, score.NewDirected(s))

	r.mu.Lock()
	t, c := r.renderedTime(), r.cache
	r.mu.Unlock()

	err := d.TimeChange(ctx, t, c)
	if err == nil {
		err = c.ScoreContentLoaded(ctx, d.GraphID())
	}
	if err != nil {
		r.mu.Lock()
		// content retained for the failed graph is released.
		if !r.tracked(d.GraphID()) {
			c.Release(d.GraphID())
		}
		r.mu.Unlock()
		d.Unmount()
		return fmt.Errorf("enqueue score %s: %w", s.Graph.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// no double rolloff if playback has just started.
	r.enqueued = append(r.enqueued, enqueued{
		destination: d,
		rolloff:     rolloff && r.playing(),
	})
	r.logger.Debugf("renderer: enqueued score %s", s.Graph.ID)
	if !r.playing() {
		r.processEnqueued()
	}
	return nil
}

// DequeueScore removes score from rendering. Rolloff fades the score out
// if renderer is playing.
func (r *Renderer) DequeueScore(graphID string, rolloff bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dequeue(graphID, rolloff)
}

// DequeueScores removes all scores from rendering.
func (r *Renderer) DequeueScores() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debugf("renderer: dequeuing all scores")
	for _, d := range r.destinations {
		r.dequeued = append(r.dequeued, dequeued{
			graphID: d.GraphID(),
			rolloff: r.autoRolloff && r.playing(),
		})
	}
	if !r.playing() {
		r.processDequeued()
	}
}

func (r *Renderer) dequeue(graphID string, rolloff bool) {
	r.dequeued = append(r.dequeued, dequeued{
		graphID: graphID,
		rolloff: rolloff && r.playing(),
	})
	r.logger.Debugf("renderer: dequeued score %s", graphID)
	if !r.playing() {
		r.processDequeued()
	}
}

// processEnqueued promotes enqueued destinations. Returns faded in first
// quanta of destinations with rolloff.
func (r *Renderer) processEnqueued() []*signal.Buffer {
	var buffers []*signal.Buffer
	t := r.renderedTime()
	for _, e := range r.enqueued {
		if e.rolloff {
			buffers = fade(buffers, e.destination.Feed(t, r.info.QuantumSize, nil), (*signal.Buffer).ApplyFadeIn)
		}
		r.destinations = append(r.destinations, e.destination)
		r.logger.Debugf("renderer: promoted score %s", e.destination.GraphID())
	}
	r.enqueued = nil
	return buffers
}

// processDequeued removes dequeued destinations. Returns faded out last
// quanta of destinations with rolloff.
func (r *Renderer) processDequeued() []*signal.Buffer {
	var buffers []*signal.Buffer
	t := r.renderedTime()
	for _, e := range r.dequeued {
		idx := r.destinationIndex(e.graphID)
		if idx == -1 {
			continue
		}
		d := r.destinations[idx]
		r.destinations = append(r.destinations[:idx], r.destinations[idx+1:]...)

		if e.rolloff {
			buffers = fade(buffers, d.Feed(t, r.info.QuantumSize, nil), (*signal.Buffer).ApplyFadeOut)
		}
		go d.Unmount()
		if !r.tracked(e.graphID) {
			r.cache.Release(e.graphID)
		}
		r.logger.Debugf("renderer: removed score %s", e.graphID)
	}
	r.dequeued = nil
	return buffers
}

func fade(buffers, faded []*signal.Buffer, fn func(*signal.Buffer)) []*signal.Buffer {
	for _, b := range faded {
		fn(b)
	}
	return append(buffers, faded...)
}

func (r *Renderer) destinationIndex(graphID string) int {
	for i, d := range r.destinations {
		if d.GraphID() == graphID {
			return i
		}
	}
	return -1
}

// tracked returns true if any enqueued or active destination renders the
// graph.
func (r *Renderer) tracked(graphID string) bool {
	if r.destinationIndex(graphID) != -1 {
		return true
	}
	for _, e := range r.enqueued {
		if e.destination.GraphID() == graphID {
			return true
		}
	}
	return false
}

// TimeChange moves rendering to time t. All active and enqueued
// destinations are time-changed concurrently, it returns once all their
// content is loaded.
func (r *Renderer) TimeChange(ctx context.Context, t instant.Instant) error {
	r.mu.Lock()
	r.samplesElapsed = t.Samples(r.info.SampleRate)
	destinations := append([]*node.Destination(nil), r.destinations...)
	for _, e := range r.enqueued {
		destinations = append(destinations, e.destination)
	}
	c := r.cache
	r.mu.Unlock()

	r.logger.Debugf("renderer: time change to %v", t)
	// graphs load independently, failed graph must not cancel others.
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	for _, d := range destinations {
		d := d
		g.Go(func() error {
			err := multierr.Append(
				d.TimeChange(ctx, t, c),
				c.ScoreContentLoaded(ctx, d.GraphID()),
			)
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	if errs != nil {
		return fmt.Errorf("time change to %v: %w", t, errs)
	}
	return nil
}

// EnqueueEffect schedules mutation and waits until it's applied. If
// renderer is playing, mutation is applied with the next quantum.
func (r *Renderer) EnqueueEffect(ctx context.Context, m mutate.Commands) error {
	if err := m.Validate(); err != nil {
		return err
	}
	e := queuedEffect{
		effect: mutate.NewEffect(m),
		result: make(chan error, 1),
	}

	r.mu.Lock()
	r.effects = append(r.effects, e)
	if !r.playing() {
		r.processEffects()
	}
	r.mu.Unlock()

	select {
	case err := <-e.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Renderer) processEffects() {
	for _, e := range r.effects {
		e.result <- r.processEffect(e.effect)
	}
	r.effects = nil
}

func (r *Renderer) processEffect(e *mutate.Effect) error {
	targets := r.effectTargets(e.GraphID)
	if len(targets) == 0 {
		return fmt.Errorf("%w: %q", ErrGraphNotFound, e.GraphID)
	}
	var (
		err     error
		applied int
	)
	for _, d := range targets {
		// broadcast skips graphs without the node.
		if d.Directed().ByID(e.NodeID) == nil {
			continue
		}
		err = multierr.Append(err, d.AcceptCommands(e))
		applied++
	}
	if applied == 0 {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, e.NodeID)
	}
	r.logger.Debugf("renderer: effect %s on %s/%s applied to %d graphs", e.Name, e.NodeID, e.ParamName, applied)
	return err
}

// effectTargets returns enqueued and active destinations of the graph.
// Empty id targets all destinations.
func (r *Renderer) effectTargets(graphID string) []*node.Destination {
	var targets []*node.Destination
	for _, e := range r.enqueued {
		if graphID == "" || e.destination.GraphID() == graphID {
			targets = append(targets, e.destination)
		}
	}
	for _, d := range r.destinations {
		if graphID == "" || d.GraphID() == graphID {
			targets = append(targets, d)
		}
	}
	return targets
}

// Scores returns directed scores of active destinations.
func (r *Renderer) Scores() []*score.Directed {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make([]*score.Directed, 0, len(r.destinations))
	for _, d := range r.destinations {
		scores = append(scores, d.Directed())
	}
	return scores
}

// Score returns directed score of active destination or nil if graph
// isn't rendered.
func (r *Renderer) Score(graphID string) *score.Directed {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.destinationIndex(graphID); idx != -1 {
		return r.destinations[idx].Directed()
	}
	return nil
}

// Description describes what every node of active destinations plays at
// time t. Destinations themselves are not described.
func (r *Renderer) Description(t instant.Instant) []node.Description {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []node.Description
	for _, d := range r.destinations {
		descs := d.Describe(t, nil)
		all = append(all, descs[1:]...)
	}
	return all
}
