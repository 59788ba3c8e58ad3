package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dudk/nfplayer/portaudio"
)

func newPlayCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play the score on the default output device",
		Long:  "Play the score on the default output device until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runPlay(ctx, rootOpts)
		},
	}
}

func runPlay(ctx context.Context, opts *rootOptions) error {
	p, err := newPlayer(ctx, opts)
	if err != nil {
		return err
	}
	s := portaudio.NewSink(opts.quantum, sampleRate, channelCount)
	if err := s.Open(); err != nil {
		return err
	}
	p.SetPlaying(true)
	if err := s.Play(ctx, p.Renderer()); err != nil {
		s.Flush()
		return err
	}
	return s.Flush()
}
