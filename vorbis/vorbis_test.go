package vorbis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/nfplayer/vorbis"
)

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		description string
		data        []byte
	}{
		{
			description: "empty",
		},
		{
			description: "not ogg",
			data:        []byte("RIFF....WAVEfmt "),
		},
	}

	for _, test := range tests {
		b, err := vorbis.Decode(test.data)
		assert.Error(t, err, test.description)
		assert.Nil(t, b, test.description)
	}
}
