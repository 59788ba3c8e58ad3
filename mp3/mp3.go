// Package mp3 decodes mp3 content and encodes rendered audio to mp3 files.
package mp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/viert/lame"

	"github.com/dudk/nfplayer/signal"
)

// decoded content is always 16 bit stereo.
const numChannels = 2

// Decode decodes the whole mp3 content into a stereo buffer at stream
// sample rate.
func Decode(data []byte) (*signal.Buffer, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mp3 decoder: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("read mp3: %w", err)
	}

	ints := make([]int, len(raw)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	// drop trailing half frame.
	ints = ints[:len(ints)-len(ints)%numChannels]
	return signal.InterInt{
		Data:        ints,
		NumChannels: numChannels,
		BitDepth:    signal.BitDepth16,
	}.AsBuffer(d.SampleRate()), nil
}

// Sink allows to send data to mp3 files.
type Sink struct {
	f  *os.File
	wr *lame.LameWriter
}

// NewSink creates the file at path and initializes the encoder.
func NewSink(path string, sampleRate, numChannels, bitRate, quality int) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	wr := lame.NewWriter(f)
	wr.Encoder.SetBitrate(bitRate)
	wr.Encoder.SetQuality(quality)
	wr.Encoder.SetNumChannels(numChannels)
	wr.Encoder.SetInSamplerate(sampleRate)
	wr.Encoder.SetMode(lame.JOINT_STEREO)
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()
	return &Sink{
		f:  f,
		wr: wr,
	}, nil
}

// Sink encodes the buffer into the file.
func (s *Sink) Sink(b *signal.Buffer) error {
	ints := b.AsInterInt(signal.BitDepth16).Data
	buf := bytes.NewBuffer(make([]byte, 0, len(ints)*2))
	for i := range ints {
		if err := binary.Write(buf, binary.LittleEndian, int16(ints[i])); err != nil {
			return err
		}
	}
	_, err := s.wr.Write(buf.Bytes())
	return err
}

// Flush flushes encoder and closes the file.
func (s *Sink) Flush() error {
	if err := s.wr.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
