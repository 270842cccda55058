// Package transcode cuts bounded-length preview clips out of source audio.
package transcode

import (
	"context"
	"time"

	"github.com/makeasinger/samples/internal/model"
)

// Request describes one file-to-file transcode
type Request struct {
	Source   string
	Output   string
	Offset   time.Duration
	Duration time.Duration
	Params   model.CodecParams
}

// Output is the finished file
type Output struct {
	Path string
	Size int64
}

// Transcoder re-encodes a slice of a source file
type Transcoder interface {
	Transcode(ctx context.Context, req Request) (*Output, error)
}

// Prober reports the duration of a source file
type Prober interface {
	Probe(ctx context.Context, path string) (time.Duration, error)
}
