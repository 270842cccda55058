package ingest

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// ArtifactKeys are the object-storage keys for one file's uploads
type ArtifactKeys struct {
	ID      string
	Full    string
	Preview string
}

// NewArtifactKeys returns keys that are unique per call:
// samples/<yyyy>/<mm>/<uuid>-<slug><ext> and previews/<yyyy>/<mm>/<uuid>-<slug><previewExt>.
func NewArtifactKeys(now time.Time, name, ext, previewExt string) ArtifactKeys {
	id := uuid.NewString()
	base := fmt.Sprintf("%04d/%02d/%s-%s", now.Year(), int(now.Month()), id, Slug(name))
	return ArtifactKeys{
		ID:      id,
		Full:    "samples/" + base + ext,
		Preview: "previews/" + base + previewExt,
	}
}

const maxSlugLen = 60

// Slug lowercases name and replaces every run of non-alphanumerics with "-".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "sample"
	}
	return s
}

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".aif":  "audio/aiff",
	".aiff": "audio/aiff",
	".ogg":  "audio/ogg",
}

// ContentType maps an audio extension to its MIME type
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
