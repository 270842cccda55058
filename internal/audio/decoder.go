// Package audio decodes source files into mono float samples for analysis.
package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// PCM is decoded mono audio in [-1, 1]
type PCM struct {
	Samples    []float64
	SampleRate int
	Channels   int // channel count of the source before downmixing
}

// Decoder turns an audio file on disk into mono samples
type Decoder interface {
	Decode(ctx context.Context, path string) (*PCM, error)
}

// Router decodes WAV and FLAC natively and sends every other format through ffmpeg.
type Router struct {
	WAV      Decoder
	FLAC     Decoder
	Fallback Decoder
}

// NewRouter wires the native decoders with an ffmpeg fallback
func NewRouter(ffmpegPath string, analysisSampleRate int) *Router {
	return &Router{
		WAV:      WAVDecoder{},
		FLAC:     FLACDecoder{},
		Fallback: &FFmpegDecoder{Path: ffmpegPath, SampleRate: analysisSampleRate},
	}
}

func (r *Router) Decode(ctx context.Context, path string) (*PCM, error) {
	var dec Decoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		dec = r.WAV
	case ".flac":
		dec = r.FLAC
	default:
		dec = r.Fallback
	}
	if dec == nil {
		dec = r.Fallback
	}
	if dec == nil {
		return nil, fmt.Errorf("no decoder for %s", filepath.Base(path))
	}

	pcm, err := dec.Decode(ctx, path)
	if err != nil && ctx.Err() == nil && dec != r.Fallback && r.Fallback != nil {
		// Native decoders reject some valid encodings (e.g. float WAV); ffmpeg handles them.
		return r.Fallback.Decode(ctx, path)
	}
	return pcm, err
}

// divisor returns the full-scale value for signed integer PCM of the given depth.
func divisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8:
		return 128, nil
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}
