package model

import (
	"bytes"
	"io"
	"time"
)

// RawAudioInput is one file handed to the ingestion pipeline: an opaque payload
// plus the filename it was uploaded or found under.
type RawAudioInput struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// InputFromBytes wraps an in-memory payload as a RawAudioInput.
func InputFromBytes(filename string, data []byte) RawAudioInput {
	return RawAudioInput{
		Filename: filename,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ParsedMetadata is what the filename parser derives from a filename
type ParsedMetadata struct {
	Name     string   `json:"name"`
	BPM      *int     `json:"bpm,omitempty"`
	Key      *string  `json:"key,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Producer string   `json:"producer"`
	Tags     []string `json:"tags"`
}

// CodecParams describes the fixed output format of preview clips
type CodecParams struct {
	Codec       string `json:"codec"`
	Format      string `json:"format"`
	ContentType string `json:"contentType"`
	Extension   string `json:"extension"`
	SampleRate  int    `json:"sampleRate"`
	Channels    int    `json:"channels"`
	BitrateKbps int    `json:"bitrateKbps"`
}

// DefaultPreviewParams returns stereo 44.1kHz 128kbps MP3
func DefaultPreviewParams() CodecParams {
	return CodecParams{
		Codec:       "libmp3lame",
		Format:      "mp3",
		ContentType: "audio/mpeg",
		Extension:   ".mp3",
		SampleRate:  44100,
		Channels:    2,
		BitrateKbps: 128,
	}
}

// PreviewClip is a bounded-duration re-encoding of a source file
type PreviewClip struct {
	Data     []byte
	Offset   time.Duration
	Duration time.Duration
	Params   CodecParams
}

// CatalogRecord is the row submitted to the catalog for one ingested sample
type CatalogRecord struct {
	Name             string    `json:"name"`
	ArtistID         string    `json:"artistId,omitempty"`
	BPM              *int      `json:"bpm,omitempty"`
	Key              *string   `json:"key,omitempty"`
	Genre            string    `json:"genre"`
	Tags             []string  `json:"tags"`
	Producer         string    `json:"producer"`
	OriginalFilename string    `json:"originalFilename"`
	FullAudioURL     string    `json:"fullAudioUrl"`
	PreviewURL       string    `json:"previewUrl"`
	WaveformPeaks    []float64 `json:"waveformPeaks"`
	FileSize         int64     `json:"fileSize"`
	PreviewDuration  float64   `json:"previewDuration"`
}
