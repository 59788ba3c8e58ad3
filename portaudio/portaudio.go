// Package portaudio plays rendered audio on the default output device.
package portaudio

import (
	"context"

	"github.com/gordonklaus/portaudio"

	"github.com/dudk/nfplayer/signal"
)

// Source renders quanta of audio. Nil quantum is played as silence.
type Source interface {
	Render() *signal.Buffer
}

// Sink represents portaudio sink which allows to play audio using
// default device.
type Sink struct {
	buf         []float32
	stream      *portaudio.Stream
	sampleRate  int
	bufferSize  int
	numChannels int
}

// NewSink returns sink for quanta of buffer size.
func NewSink(bufferSize, sampleRate, numChannels int) *Sink {
	return &Sink{
		bufferSize:  bufferSize,
		sampleRate:  sampleRate,
		numChannels: numChannels,
	}
}

// Open initializes portaudio and starts the default stream.
func (s *Sink) Open() error {
	s.buf = make([]float32, s.bufferSize*s.numChannels)
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, s.numChannels, float64(s.sampleRate), s.bufferSize, &s.buf)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}
	s.stream = stream
	return nil
}

// Sink writes the buffer to the stream. Buffer longer than the stream
// buffer is written in parts.
func (s *Sink) Sink(b *signal.Buffer) error {
	for start := 0; start < b.Len(); start += s.bufferSize {
		s.fill(b, start)
		if err := s.stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// fill copies buffer samples from start position into stream buffer.
// Missing channels and samples are silent.
func (s *Sink) fill(b *signal.Buffer, start int) {
	for i := range s.buf {
		s.buf[i] = 0
	}
	for c := 0; c < s.numChannels && c < b.NumChannels(); c++ {
		ch := b.Channel(c)
		for i := 0; i < s.bufferSize && start+i < len(ch); i++ {
			s.buf[i*s.numChannels+c] = float32(ch[start+i])
		}
	}
}

// Play writes rendered quanta to the stream until context is done.
func (s *Sink) Play(ctx context.Context, src Source) error {
	silence := signal.NewBuffer(s.numChannels, s.bufferSize, s.sampleRate)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		b := src.Render()
		if b == nil {
			b = silence
		}
		if err := s.Sink(b); err != nil {
			return err
		}
	}
}

// Flush terminates portaudio structures.
func (s *Sink) Flush() error {
	if err := s.stream.Stop(); err != nil {
		return err
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
