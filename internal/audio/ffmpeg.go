package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder decodes any format ffmpeg understands to mono s16le at SampleRate.
type FFmpegDecoder struct {
	Path       string
	SampleRate int
}

func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (*PCM, error) {
	bin := d.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	rate := d.SampleRate
	if rate <= 0 {
		rate = 22050
	}

	cmd := exec.CommandContext(ctx, bin,
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(rate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	return &PCM{
		Samples:    s16leToFloat(out),
		SampleRate: rate,
		Channels:   1,
	}, nil
}

func s16leToFloat(b []byte) []float64 {
	samples := make([]float64, len(b)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(b[i*2:]))) / 32768
	}
	return samples
}
