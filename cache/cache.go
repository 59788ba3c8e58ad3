// Package cache provides decoded audio shared between scores. Content is
// fetched once per URI no matter how many graphs request it, and loading
// progress is tracked per graph.
package cache

import (
	"context"
	"sync"

	"github.com/dudk/nfplayer/log"
	"github.com/dudk/nfplayer/signal"
)

// FetchFunc fetches and decodes content of the URI.
type FetchFunc func(ctx context.Context, uri string) (*signal.Buffer, error)

type (
	// Cache stores decoded audio. It's safe for concurrent use.
	Cache struct {
		logger log.Logger

		mu       sync.Mutex
		audio    map[string]*signal.Buffer
		pinned   map[string]struct{}
		requests map[string]*request
		graphs   map[string]*tracker
		refs     map[string]map[string]struct{}
	}

	// request is an in-flight fetch of single URI.
	request struct {
		done chan struct{}
		buf  *signal.Buffer
		err  error
	}

	// tracker tracks pending content of a single graph.
	tracker struct {
		pending map[string]struct{}
		done    chan struct{}
		err     error
	}
)

// Option configures the cache.
type Option func(*Cache)

// WithAudio preloads decoded audio. Preloaded content is never evicted.
func WithAudio(audio map[string]*signal.Buffer) Option {
	return func(c *Cache) {
		for uri, buf := range audio {
			c.audio[uri] = buf
			c.pinned[uri] = struct{}{}
		}
	}
}

// WithLogger sets cache logger.
func WithLogger(l log.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates a new cache.
func New(options ...Option) *Cache {
	c := Cache{
		logger:   log.GetLogger(),
		audio:    make(map[string]*signal.Buffer),
		pinned:   make(map[string]struct{}),
		requests: make(map[string]*request),
		graphs:   make(map[string]*tracker),
		refs:     make(map[string]map[string]struct{}),
	}
	for _, option := range options {
		option(&c)
	}
	return &c
}

// Get returns decoded content of the URI for the graph. If content is not
// cached yet, it's fetched with provided function. Concurrent calls for
// the same URI share a single fetch. Context only limits the wait, the
// fetch itself is never cancelled.
func (c *Cache) Get(ctx context.Context, uri, graphID string, fetch FetchFunc) (*signal.Buffer, error) {
	c.mu.Lock()
	c.retain(uri, graphID)
	if buf, ok := c.audio[uri]; ok {
		c.mu.Unlock()
		return buf, nil
	}

	t, ok := c.graphs[graphID]
	if !ok {
		c.logger.Debugf("cache: tracking content of graph %s", graphID)
		t = &tracker{
			pending: make(map[string]struct{}),
			done:    make(chan struct{}),
		}
		c.graphs[graphID] = t
	}
	t.pending[uri] = struct{}{}

	r, ok := c.requests[uri]
	if !ok {
		r = &request{done: make(chan struct{})}
		c.requests[uri] = r
		go c.fetch(uri, r, fetch)
	}
	c.mu.Unlock()

	select {
	case <-r.done:
		return r.buf, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fetch(uri string, r *request, fetch FetchFunc) {
	buf, err := fetch(context.Background(), uri)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.requests, uri)
	r.buf, r.err = buf, err
	close(r.done)

	if err != nil {
		c.logger.Warnf("cache: failed to load %s: %v", uri, err)
		// single failed request fails all graphs waiting for it.
		for graphID, t := range c.graphs {
			if _, ok := t.pending[uri]; ok {
				t.err = err
				close(t.done)
				delete(c.graphs, graphID)
			}
		}
		return
	}

	c.logger.Debugf("cache: loaded %s", uri)
	// content released while in flight is not kept.
	if _, ok := c.refs[uri]; ok {
		c.audio[uri] = buf
	}
	for graphID, t := range c.graphs {
		if _, ok := t.pending[uri]; !ok {
			continue
		}
		delete(t.pending, uri)
		if len(t.pending) == 0 {
			c.logger.Debugf("cache: graph %s content loaded", graphID)
			close(t.done)
			delete(c.graphs, graphID)
		}
	}
}

// ScoreContentLoaded blocks until all content requested for the graph is
// loaded. It returns immediately if graph has no pending content.
func (c *Cache) ScoreContentLoaded(ctx context.Context, graphID string) error {
	c.mu.Lock()
	t, ok := c.graphs[graphID]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cached returns true if content of the URI is cached.
func (c *Cache) Cached(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.audio[uri]
	return ok
}

// retain must be called under lock.
func (c *Cache) retain(uri, graphID string) {
	graphs, ok := c.refs[uri]
	if !ok {
		graphs = make(map[string]struct{})
		c.refs[uri] = graphs
	}
	graphs[graphID] = struct{}{}
}

// Release drops references of the graph. Content not referenced by any
// other graph is evicted unless it was preloaded.
func (c *Cache) Release(graphID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for uri, graphs := range c.refs {
		delete(graphs, graphID)
		if len(graphs) > 0 {
			continue
		}
		delete(c.refs, uri)
		if _, ok := c.pinned[uri]; ok {
			continue
		}
		if _, ok := c.audio[uri]; ok {
			c.logger.Debugf("cache: evicted %s", uri)
			delete(c.audio, uri)
		}
	}
}
