// Package wav decodes wav content and writes rendered audio to wav files.
package wav

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dudk/nfplayer/signal"
)

// format is PCM integer format code.
const format = 1

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")
	// ErrInvalidFile is returned when content is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

// Decode decodes the whole wav content into a buffer at file sample rate.
func Decode(data []byte) (*signal.Buffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, ErrInvalidFile
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if !supported(bitDepth) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	ib, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	return signal.InterInt{
		Data:        ib.Data,
		NumChannels: ib.Format.NumChannels,
		BitDepth:    bitDepth,
	}.AsBuffer(int(decoder.SampleRate)), nil
}

func supported(bitDepth signal.BitDepth) bool {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth32:
		return true
	default:
		return false
	}
}

// Sink saves audio to wav file.
type Sink struct {
	bitDepth signal.BitDepth
	file     *os.File
	encoder  *wav.Encoder
	ib       *audio.IntBuffer
}

// NewSink creates the file at path and prepares the encoder.
func NewSink(path string, sampleRate, numChannels int, bitDepth signal.BitDepth) (*Sink, error) {
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{
		bitDepth: bitDepth,
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, int(bitDepth), numChannels, format),
		ib: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: numChannels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// Sink writes the buffer to the file.
func (s *Sink) Sink(b *signal.Buffer) error {
	s.ib.Data = b.AsInterInt(s.bitDepth).Data
	return s.encoder.Write(s.ib)
}

// Flush writes wav header and closes the file.
func (s *Sink) Flush() error {
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
