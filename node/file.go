package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/score"
	"github.com/dudk/nfplayer/signal"
)

var (
	// ErrUnsupportedURI is returned when file node content can't be
	// fetched because of its URI scheme.
	ErrUnsupportedURI = errors.New("unsupported file uri")
	// ErrNoFetch is returned when content isn't cached and renderer has no
	// fetch capability.
	ErrNoFetch = errors.New("no fetch capability")
)

// file plays decoded content within the window [when, when+duration).
type file struct {
	base
	uri      string
	when     instant.Instant
	duration instant.Instant
	offset   instant.Instant
	// nil until the content is loaded, file is silent meanwhile.
	content atomic.Pointer[signal.Buffer]
}

func newFile(info Info, data *score.Node, directed *score.Directed, f *Factory) Node {
	n := file{base: newBase(info, data, directed, f)}
	n.uri, _ = data.String(score.ConfigFile)
	n.when = nanos(data, score.ConfigWhen)
	n.duration = nanos(data, score.ConfigDuration)
	n.offset = nanos(data, score.ConfigOffset)
	return &n
}

func nanos(data *score.Node, key string) instant.Instant {
	v, _ := data.Int64(key)
	return instant.FromNanos(v)
}

// TimeChange loads the content. File nodes are sources, so there are no
// ancestors to rebuild.
func (n *file) TimeChange(ctx context.Context, _ instant.Instant, c *cache.Cache) error {
	if strings.Contains(n.uri, "spotify:") {
		return fmt.Errorf("%w: %s", ErrUnsupportedURI, n.uri)
	}

	buf, err := c.Get(ctx, n.uri, n.directed.GraphID(), n.fetch)
	if err != nil {
		return fmt.Errorf("load %s: %w", n.uri, err)
	}
	n.content.Store(buf)
	return nil
}

func (n *file) fetch(ctx context.Context, uri string) (*signal.Buffer, error) {
	if n.info.Fetch == nil {
		return nil, ErrNoFetch
	}
	n.info.Logger.Debugf("file %s: fetching %s", n.data.ID, uri)
	return n.info.Fetch(ctx, uri)
}

func (n *file) Feed(t instant.Instant, count int, buffers []*signal.Buffer) []*signal.Buffer {
	content := n.content.Load()
	if content == nil {
		return buffers
	}

	hz := n.info.SampleRate
	now := t.Samples(hz)
	when := n.when.Samples(hz)
	end := when + n.duration.Samples(hz)

	// overlap of the quantum and the file window.
	from := now
	if when > from {
		from = when
	}
	to := now + int64(count)
	if end < to {
		to = end
	}
	if to <= from {
		return buffers
	}

	outStart := from - now
	contentStart := from - when + n.offset.Samples(hz)
	size := to - from
	if contentStart < 0 {
		outStart -= contentStart
		size += contentStart
		contentStart = 0
	}
	if left := int64(content.Len()) - contentStart; left < size {
		size = left
	}
	if size <= 0 {
		return buffers
	}

	out := signal.NewBuffer(content.NumChannels(), count, hz)
	for c := 0; c < content.NumChannels(); c++ {
		out.CopyToChannel(content.Channel(c)[contentStart:contentStart+size], c, int(outStart))
	}
	return append(buffers, out)
}

func (n *file) Describe(t instant.Instant, descs []Description) []Description {
	var maxDuration instant.Instant
	if content := n.content.Load(); content != nil {
		maxDuration = instant.FromDuration(content.Duration())
	}
	return append(descs, Description{
		ID:   n.data.ID,
		Kind: n.data.Kind,
		Time: t,
		File: &FileDescription{MaxDuration: maxDuration},
	})
}

func (n *file) Unmount() {
	n.content.Store(nil)
}
