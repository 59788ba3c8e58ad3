package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dudk/nfplayer/mp3"
	"github.com/dudk/nfplayer/render"
	"github.com/dudk/nfplayer/signal"
	"github.com/dudk/nfplayer/wav"
)

const (
	mp3BitRate = 192
	mp3Quality = 2
)

// errOutputFormat is returned when output extension is not supported.
var errOutputFormat = errors.New("output format must be .wav or .mp3")

type saveOptions struct {
	outputFile string
	duration   float64
}

// sink consumes rendered quanta.
type sink interface {
	Sink(*signal.Buffer) error
	Flush() error
}

func newSaveCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &saveOptions{}
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Render the score into a file",
		Long: `Render the score into a wav or mp3 file. Output format is chosen
by the file extension.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.outputFile, "output-file", "o", "nfplayer.wav", "output file (wav or mp3)")
	cmd.Flags().Float64VarP(&opts.duration, "duration", "d", 60, "duration in seconds")
	return cmd
}

func newSink(path string) (sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.NewSink(path, sampleRate, channelCount, signal.BitDepth16)
	case ".mp3":
		return mp3.NewSink(path, sampleRate, channelCount, mp3BitRate, mp3Quality)
	default:
		return nil, fmt.Errorf("%w: %s", errOutputFormat, path)
	}
}

func runSave(cmd *cobra.Command, rootOpts *rootOptions, opts *saveOptions) error {
	s, err := newSink(opts.outputFile)
	if err != nil {
		return err
	}
	p, err := newPlayer(cmd.Context(), rootOpts, render.WithAutoRolloff(false))
	if err != nil {
		s.Flush()
		return err
	}

	p.SetPlaying(true)
	samples := int64(opts.duration * sampleRate)
	for rendered := int64(0); rendered < samples; {
		b := p.Renderer().Render()
		if b == nil {
			break
		}
		if left := samples - rendered; int64(b.Len()) > left {
			b = trim(b, int(left))
		}
		if err := s.Sink(b); err != nil {
			s.Flush()
			return fmt.Errorf("write %s: %w", opts.outputFile, err)
		}
		rendered += int64(b.Len())
	}

	if err := s.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", opts.outputFile)
	return nil
}

// trim returns first n samples of the buffer.
func trim(b *signal.Buffer, n int) *signal.Buffer {
	result := signal.NewBuffer(b.NumChannels(), n, b.SampleRate)
	signal.Copy(result, b, 0)
	return result
}
