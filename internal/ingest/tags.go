package ingest

import (
	"errors"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// Hints are descriptive fields embedded in the audio file itself
type Hints struct {
	Genre  string
	Artist string
}

// TagReader extracts Hints from a file on disk
type TagReader interface {
	Read(path string) (Hints, error)
}

// EmbeddedTags reads ID3, MP4, FLAC and OGG tags with dhowden/tag
type EmbeddedTags struct{}

func (EmbeddedTags) Read(path string) (Hints, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hints{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Hints{}, err
	}
	return Hints{
		Genre:  strings.TrimSpace(m.Genre()),
		Artist: strings.TrimSpace(m.Artist()),
	}, nil
}

func readHints(r TagReader, path string, log *logrus.Entry) Hints {
	h, err := r.Read(path)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			log.WithError(err).Debug("could not read embedded tags")
		}
		return Hints{}
	}
	return h
}
