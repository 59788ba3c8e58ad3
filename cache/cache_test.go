package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/log"
	"github.com/dudk/nfplayer/signal"
)

const uri = "test:audio"

var errFetch = errors.New("fetch failed")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fetcher blocks until released and counts calls.
type fetcher struct {
	calls   int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newFetcher(err error) *fetcher {
	return &fetcher{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
		err:     err,
	}
}

func (f *fetcher) fetch(ctx context.Context, uri string) (*signal.Buffer, error) {
	atomic.AddInt32(&f.calls, 1)
	f.started <- struct{}{}
	<-f.release
	if f.err != nil {
		return nil, f.err
	}
	return signal.NewBuffer(2, 100, 44100), nil
}

func newCache(options ...cache.Option) *cache.Cache {
	return cache.New(append(options, cache.WithLogger(log.Discard()))...)
}

func TestFetchOnce(t *testing.T) {
	c := newCache()
	f := newFetcher(nil)
	var wg sync.WaitGroup
	results := make([]*signal.Buffer, 4)
	for i, graphID := range []string{"a", "a", "b", "c"} {
		wg.Add(1)
		go func(i int, graphID string) {
			defer wg.Done()
			buf, err := c.Get(context.Background(), uri, graphID, f.fetch)
			assert.NoError(t, err)
			results[i] = buf
		}(i, graphID)
	}
	<-f.started
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
	for _, buf := range results {
		assert.Same(t, results[0], buf)
	}
	assert.True(t, c.Cached(uri))
}

func TestScoreContentLoaded(t *testing.T) {
	c := newCache()
	// untracked graph is loaded.
	assert.NoError(t, c.ScoreContentLoaded(context.Background(), "unknown"))

	f := newFetcher(nil)
	done := make(chan error)
	go func() {
		_, err := c.Get(context.Background(), uri, "graph", f.fetch)
		done <- err
	}()
	<-f.started

	loaded := make(chan error)
	go func() {
		loaded <- c.ScoreContentLoaded(context.Background(), "graph")
	}()
	close(f.release)
	assert.NoError(t, <-done)
	assert.NoError(t, <-loaded)
	assert.NoError(t, c.ScoreContentLoaded(context.Background(), "graph"))
}

func TestFetchFailure(t *testing.T) {
	c := newCache()
	f := newFetcher(errFetch)
	done := make(chan error)
	go func() {
		_, err := c.Get(context.Background(), uri, "graph", f.fetch)
		done <- err
	}()
	<-f.started
	loaded := make(chan error)
	go func() {
		loaded <- c.ScoreContentLoaded(context.Background(), "graph")
	}()
	close(f.release)
	assert.ErrorIs(t, <-done, errFetch)
	err := <-loaded
	// loaded might be checked after the failure dropped the tracker.
	if err != nil {
		assert.ErrorIs(t, err, errFetch)
	}
	assert.False(t, c.Cached(uri))

	// failed request can be retried.
	retry := newFetcher(nil)
	close(retry.release)
	buf, err := c.Get(context.Background(), uri, "graph", retry.fetch)
	require.NoError(t, err)
	assert.Equal(t, 100, buf.Len())
}

func TestGetCancelled(t *testing.T) {
	c := newCache()
	f := newFetcher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, err := c.Get(ctx, uri, "graph", f.fetch)
		done <- err
	}()
	<-f.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(f.release)
	// wait until the fetch is stored.
	buf, err := c.Get(context.Background(), uri, "graph", f.fetch)
	require.NoError(t, err)
	assert.NotNil(t, buf)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestRelease(t *testing.T) {
	pinned := signal.NewBuffer(1, 10, 44100)
	c := newCache(cache.WithAudio(map[string]*signal.Buffer{"pinned:audio": pinned}))
	f := newFetcher(nil)
	close(f.release)

	for _, graphID := range []string{"a", "b"} {
		_, err := c.Get(context.Background(), uri, graphID, f.fetch)
		require.NoError(t, err)
		buf, err := c.Get(context.Background(), "pinned:audio", graphID, f.fetch)
		require.NoError(t, err)
		assert.Same(t, pinned, buf)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))

	c.Release("a")
	assert.True(t, c.Cached(uri))
	c.Release("b")
	assert.False(t, c.Cached(uri))
	assert.True(t, c.Cached("pinned:audio"))
}
