// Package decode fetches audio content by URI and decodes it into buffers
// at the renderer sample rate. Format is chosen by file extension.
package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/dudk/nfplayer/cache"
	"github.com/dudk/nfplayer/mp3"
	"github.com/dudk/nfplayer/signal"
	"github.com/dudk/nfplayer/stretch"
	"github.com/dudk/nfplayer/vorbis"
	"github.com/dudk/nfplayer/wav"
)

// Func decodes complete content into a buffer at content sample rate.
type Func func(data []byte) (*signal.Buffer, error)

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for
	// the URI extension.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnsupportedScheme is returned for URI schemes that can't be read.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// Registry holds decoders by lowercase file extension.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Func
	client *http.Client
}

// NewRegistry returns registry with wav, mp3 and ogg vorbis decoders.
func NewRegistry() *Registry {
	r := Registry{
		codecs: make(map[string]Func),
		client: http.DefaultClient,
	}
	r.Register(".wav", wav.Decode)
	r.Register(".mp3", mp3.Decode)
	r.Register(".ogg", vorbis.Decode)
	return &r
}

// Register adds decoder for the extension, replacing existing one.
func (r *Registry) Register(ext string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[strings.ToLower(ext)] = fn
}

// Get returns decoder for the extension.
func (r *Registry) Get(ext string) (Func, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.codecs[strings.ToLower(ext)]
	return fn, ok
}

// Fetcher returns fetch function that reads the URI, decodes it and
// resamples the result to the sample rate.
func (r *Registry) Fetcher(sampleRate int) cache.FetchFunc {
	return func(ctx context.Context, uri string) (*signal.Buffer, error) {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parse uri: %w", err)
		}
		ext := path.Ext(u.Path)
		fn, ok := r.Get(ext)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
		}

		data, err := r.read(ctx, uri, u)
		if err != nil {
			return nil, err
		}
		b, err := fn(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", uri, err)
		}
		return Resample(b, sampleRate), nil
	}
}

func (r *Registry) read(ctx context.Context, uri string, u *url.URL) ([]byte, error) {
	switch u.Scheme {
	case "":
		return os.ReadFile(uri)
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("get %s: %s", uri, resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

var defaultRegistry = NewRegistry()

// Fetcher returns fetch function of default registry.
func Fetcher(sampleRate int) cache.FetchFunc {
	return defaultRegistry.Fetcher(sampleRate)
}

// Resample converts buffer to the sample rate using cubic interpolation.
// Buffer is returned as is if rates match.
func Resample(b *signal.Buffer, sampleRate int) *signal.Buffer {
	if b.SampleRate == sampleRate || b.SampleRate <= 0 || sampleRate <= 0 {
		return b
	}
	step := float64(b.SampleRate) / float64(sampleRate)
	length := int(math.Round(float64(b.Len()) / step))
	out := signal.NewBuffer(b.NumChannels(), length, sampleRate)

	resampled := make([]float64, length)
	for c := 0; c < b.NumChannels(); c++ {
		in := b.Channel(c)
		at := func(i int) float64 {
			if i < 0 {
				i = 0
			} else if i >= len(in) {
				i = len(in) - 1
			}
			return in[i]
		}
		for i := range resampled {
			pos := float64(i) * step
			idx := int(pos)
			x := pos - float64(idx)
			resampled[i] = stretch.CubicInterpolate(at(idx-1), at(idx), at(idx+1), at(idx+2), x)
		}
		out.CopyToChannel(resampled, c, 0)
	}
	return out
}
