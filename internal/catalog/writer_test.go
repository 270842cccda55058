package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/model"
)

func openTestWriter(t *testing.T) *GormWriter {
	t.Helper()
	w, err := Open(config.CatalogConfig{
		Driver:                "sqlite",
		DSN:                   filepath.Join(t.TempDir(), "catalog", "samples.db"),
		ArtistCacheTTLSeconds: 60,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestInsertSample(t *testing.T) {
	w := openTestWriter(t)
	ctx := context.Background()

	bpm := 138
	key := "B minor"
	id, err := w.InsertSample(ctx, &model.CatalogRecord{
		Name:             "Moonshine",
		BPM:              &bpm,
		Key:              &key,
		Genre:            "trap",
		Tags:             []string{"trap", "dark"},
		Producer:         "looplib",
		OriginalFilename: "moonshine_138 bmin @looplib.mp3",
		FullAudioURL:     "https://cdn/samples/a.mp3",
		PreviewURL:       "https://cdn/previews/a.mp3",
		WaveformPeaks:    []float64{0, 0.5, 1},
		FileSize:         1234,
		PreviewDuration:  25,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var got Sample
	require.NoError(t, w.db.First(&got, "id = ?", id).Error)
	assert.Equal(t, "Moonshine", got.Name)
	require.NotNil(t, got.BPM)
	assert.Equal(t, 138, *got.BPM)
	require.NotNil(t, got.Key)
	assert.Equal(t, "B minor", *got.Key)
	assert.Equal(t, []string{"trap", "dark"}, got.Tags)
	assert.Equal(t, []float64{0, 0.5, 1}, got.WaveformPeaks)
	assert.Nil(t, got.ArtistID)
}

func TestInsertSampleRejectsIncompleteRecords(t *testing.T) {
	w := openTestWriter(t)
	ctx := context.Background()

	_, err := w.InsertSample(ctx, nil)
	assert.Error(t, err)

	_, err = w.InsertSample(ctx, &model.CatalogRecord{Name: "x", FullAudioURL: "u"})
	assert.Error(t, err)
}

func TestGetOrCreateArtist(t *testing.T) {
	w := openTestWriter(t)
	ctx := context.Background()

	id1, err := w.GetOrCreateArtist(ctx, "  Night Owl ")
	require.NoError(t, err)
	id2, err := w.GetOrCreateArtist(ctx, "Night Owl")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	// Bypass the cache to prove the row is reused.
	w.artists.Flush()
	id3, err := w.GetOrCreateArtist(ctx, "Night Owl")
	require.NoError(t, err)
	assert.Equal(t, id1, id3)

	var count int64
	require.NoError(t, w.db.Model(&Artist{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = w.GetOrCreateArtist(ctx, "   ")
	assert.Error(t, err)
}

func TestGetOrCreateArtistIgnoresCase(t *testing.T) {
	w := openTestWriter(t)
	ctx := context.Background()

	id1, err := w.GetOrCreateArtist(ctx, "Foo")
	require.NoError(t, err)

	// A restart starts with an empty cache; the row must still match.
	w.artists.Flush()
	id2, err := w.GetOrCreateArtist(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	var artists []Artist
	require.NoError(t, w.db.Find(&artists).Error)
	require.Len(t, artists, 1)
	assert.Equal(t, "Foo", artists[0].Name)
	assert.Equal(t, "foo", artists[0].LookupName)
}

func TestGetOrCreateArtistConcurrent(t *testing.T) {
	w := openTestWriter(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := w.GetOrCreateArtist(ctx, "Crowd")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestInsertSampleLinksArtist(t *testing.T) {
	w := openTestWriter(t)
	ctx := context.Background()

	artistID, err := w.GetOrCreateArtist(ctx, "Producer X")
	require.NoError(t, err)

	id, err := w.InsertSample(ctx, &model.CatalogRecord{
		Name:          "Loop",
		ArtistID:      artistID,
		FullAudioURL:  "a",
		PreviewURL:    "b",
		WaveformPeaks: make([]float64, 4),
	})
	require.NoError(t, err)

	var got Sample
	require.NoError(t, w.db.First(&got, "id = ?", id).Error)
	require.NotNil(t, got.ArtistID)
	assert.Equal(t, artistID, *got.ArtistID)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.CatalogConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}
