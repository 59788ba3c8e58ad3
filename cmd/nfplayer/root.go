package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dudk/nfplayer"
	"github.com/dudk/nfplayer/decode"
	"github.com/dudk/nfplayer/instant"
	"github.com/dudk/nfplayer/log"
	"github.com/dudk/nfplayer/node"
	"github.com/dudk/nfplayer/render"
)

const (
	sampleRate   = 44100
	channelCount = 2
)

// rootOptions holds flags shared by all commands.
type rootOptions struct {
	inputFile string
	seek      float64
	quantum   int
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "nfplayer",
		Short: "nfplayer renders audio scores",
		Long: `nfplayer renders audio described by JSON or YAML scores.

Scores are graphs of file, gain, loop and stretch nodes. Content is
fetched from file paths, file:// and http(s) URIs.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.inputFile, "input-file", "i", "", "score file (json or yaml)")
	cmd.PersistentFlags().Float64VarP(&opts.seek, "seek", "s", 0, "start position in seconds")
	cmd.PersistentFlags().IntVarP(&opts.quantum, "quantum", "q", 256, "quantum size in samples")
	cmd.MarkPersistentFlagRequired("input-file")

	cmd.AddCommand(newSaveCommand(opts))
	cmd.AddCommand(newPlayCommand(opts))
	return cmd
}

// readScore reads score file. YAML scores are converted to JSON.
func readScore(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return json.Marshal(v)
	default:
		return data, nil
	}
}

// newPlayer loads the score and moves rendering to the seek position.
func newPlayer(ctx context.Context, opts *rootOptions, options ...render.Option) (*nfplayer.Player, error) {
	data, err := readScore(opts.inputFile)
	if err != nil {
		return nil, err
	}
	logger := log.GetLogger()
	options = append(options, render.WithLogger(logger))
	p := nfplayer.New(render.New(node.Info{
		SampleRate:   sampleRate,
		QuantumSize:  opts.quantum,
		ChannelCount: channelCount,
		Fetch:        decode.Fetcher(sampleRate),
		Logger:       logger,
	}, options...))

	if err := p.SetJSON(ctx, data); err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.inputFile, err)
	}
	if opts.seek > 0 {
		if err := p.Seek(ctx, instant.FromSeconds(opts.seek)); err != nil {
			return nil, fmt.Errorf("seek: %w", err)
		}
	}
	logger.Infof("loaded %s at %v", opts.inputFile, p.RenderTime())
	return p, nil
}
