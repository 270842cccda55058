package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/makeasinger/samples/internal/model"
)

// tempExt marks ffmpeg output that has not been finalized yet
const tempExt = ".temp"

// FFmpeg transcodes with the ffmpeg binary at Path
type FFmpeg struct {
	Path string
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

func (f *FFmpeg) Transcode(ctx context.Context, req Request) (*Output, error) {
	if req.Source == "" || req.Output == "" {
		return nil, errors.New("transcode: source and output paths are required")
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("transcode: invalid duration %s", req.Duration)
	}

	tempFilePath, err := createTempFile(req.Output)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, f.Path, buildFFmpegArgs(req, tempFilePath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(tempFilePath)
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}

	if err := finalizeOutput(tempFilePath, req.Output); err != nil {
		_ = os.Remove(tempFilePath)
		return nil, err
	}

	info, err := os.Stat(req.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to stat preview: %w", err)
	}
	if info.Size() == 0 {
		return nil, errors.New("ffmpeg produced an empty preview")
	}
	return &Output{Path: req.Output, Size: info.Size()}, nil
}

// createTempFile makes sure the output directory exists and returns the temp path
func createTempFile(outputPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}
	return outputPath + tempExt, nil
}

// finalizeOutput renames the temp file to its final name
func finalizeOutput(tempFilePath, outputPath string) error {
	if err := os.Rename(tempFilePath, outputPath); err != nil {
		return fmt.Errorf("failed to rename temporary preview to final output: %w", err)
	}
	return nil
}

// buildFFmpegArgs seeks before -i so ffmpeg skips decoding the lead-in
func buildFFmpegArgs(req Request, tempFilePath string) []string {
	p := req.Params
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(req.Offset),
		"-t", formatSeconds(req.Duration),
		"-i", req.Source,
		"-vn",
		"-ac", strconv.Itoa(p.Channels),
		"-ar", strconv.Itoa(p.SampleRate),
		"-c:a", p.Codec,
		"-b:a", strconv.Itoa(p.BitrateKbps) + "k",
		"-f", p.Format,
		"-y",
		tempFilePath,
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// validParams rejects codec settings ffmpeg would choke on
func validParams(p model.CodecParams) error {
	switch {
	case p.Codec == "" || p.Format == "":
		return errors.New("codec and format are required")
	case p.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", p.SampleRate)
	case p.Channels <= 0:
		return fmt.Errorf("invalid channel count %d", p.Channels)
	case p.BitrateKbps <= 0:
		return fmt.Errorf("invalid bitrate %dk", p.BitrateKbps)
	}
	return nil
}
