package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/tphakala/flac"
)

// FLACDecoder reads FLAC files with tphakala/flac
type FLACDecoder struct{}

func (FLACDecoder) Decode(ctx context.Context, path string) (*PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, err
	}

	channels := decoder.NChannels
	if channels < 1 {
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
	div, err := divisor(decoder.BitsPerSample)
	if err != nil {
		return nil, err
	}
	bytesPerSample := decoder.BitsPerSample / 8
	frameSize := bytesPerSample * channels

	samples := make([]float64, 0, int(decoder.TotalSamples))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		// Frames are interleaved little-endian; average the channels of each sample frame.
		for i := 0; i+frameSize <= len(frame); i += frameSize {
			var sum float64
			for c := 0; c < channels; c++ {
				sum += float64(readSample(frame[i+c*bytesPerSample:], decoder.BitsPerSample)) / div
			}
			samples = append(samples, sum/float64(channels))
		}
	}

	return &PCM{
		Samples:    samples,
		SampleRate: decoder.SampleRate,
		Channels:   channels,
	}, nil
}

func readSample(b []byte, bitDepth int) int32 {
	switch bitDepth {
	case 8:
		return int32(int8(b[0]))
	case 16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xffffff
		}
		return v
	case 32:
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}
