package ingest

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dhowden/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/samples/internal/model"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEnumerate(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b_loop.WAV"), "x")
	touch(t, filepath.Join(dir, "a_loop.mp3"), "x")
	touch(t, filepath.Join(dir, "notes.txt"), "x")
	touch(t, filepath.Join(dir, "._a_loop.mp3"), "x")
	touch(t, filepath.Join(dir, "kit", "kick.flac"), "x")
	touch(t, filepath.Join(dir, ".cache", "hidden.wav"), "x")

	exts := []string{".mp3", ".wav", ".m4a", ".flac"}

	flat, err := Enumerate(dir, exts, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_loop.mp3"),
		filepath.Join(dir, "b_loop.WAV"),
	}, flat)

	deep, err := Enumerate(dir, exts, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_loop.mp3"),
		filepath.Join(dir, "b_loop.WAV"),
		filepath.Join(dir, "kit", "kick.flac"),
	}, deep)
}

func TestEnumerateRejectsMissingDir(t *testing.T) {
	_, err := Enumerate("", nil, false)
	assert.Error(t, err)

	_, err = Enumerate(filepath.Join(t.TempDir(), "nope"), nil, false)
	assert.Error(t, err)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "vox_90_Gm.wav"), "RIFFvox")

	inputs, err := LoadDirectory(dir, []string{".wav"}, false)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "vox_90_Gm.wav", inputs[0].Filename)
	assert.Equal(t, int64(7), inputs[0].Size)

	rc, err := inputs[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "RIFFvox", string(data))
}

func TestInputFromFileRejectsDirectory(t *testing.T) {
	_, err := InputFromFile(t.TempDir())
	assert.Error(t, err)
}

func TestWriteFailureLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "failed-uploads.json")
	results := []model.IngestionResult{
		{Filename: "ok.wav", Success: true, Stage: model.StageDone},
		{
			Filename: "bad.wav",
			Stage:    model.StageFailed,
			Error:    model.NewIngestError(model.ErrorKindUpload, model.StageUploading, assert.AnError),
		},
	}
	summary := Summarize(results, 3*time.Second)
	require.NoError(t, WriteFailureLog(path, summary.Failures))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "bad.wav", got[0]["filename"])
	assert.Equal(t, "upload", got[0]["kind"])
	assert.Equal(t, "uploading", got[0]["stage"])
	assert.Equal(t, assert.AnError.Error(), got[0]["error"])
}

func TestWriteFailureLogSkipsWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.json")
	require.NoError(t, WriteFailureLog(path, nil))
	assert.NoFileExists(t, path)
}

func TestEmbeddedTagsWithoutTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.mp3")
	touch(t, path, strings.Repeat("x", 256))

	_, err := EmbeddedTags{}.Read(path)
	assert.ErrorIs(t, err, tag.ErrNoTagsFound)
}
