package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/makeasinger/samples/internal/waveform"
)

const wavBufferFrames = 32768

// WAVDecoder reads integer PCM WAV files with go-audio/wav
type WAVDecoder struct{}

func (WAVDecoder) Decode(ctx context.Context, path string) (*PCM, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("input is not a valid WAV audio file")
	}
	if decoder.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV audio format: %d", decoder.WavAudioFormat)
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
	bitDepth := int(decoder.BitDepth)
	div, err := divisor(bitDepth)
	if err != nil {
		return nil, err
	}

	buf := &goaudio.IntBuffer{
		Data:   make([]int, wavBufferFrames*channels),
		Format: &goaudio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	var interleaved []float64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			if bitDepth == 8 {
				// 8-bit WAV is unsigned
				s -= 128
			}
			interleaved = append(interleaved, float64(s)/div)
		}
	}

	return &PCM{
		Samples:    waveform.Downmix(interleaved, channels),
		SampleRate: int(decoder.SampleRate),
		Channels:   channels,
	}, nil
}
