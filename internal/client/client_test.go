package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/samples/internal/config"
)

func TestLocalStoreUpload(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://cdn.test/")
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "samples/2026/10/abc-loop.wav", strings.NewReader("RIFF"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/samples/2026/10/abc-loop.wav", url)

	data, err := os.ReadFile(filepath.Join(root, "samples", "2026", "10", "abc-loop.wav"))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
	assert.NoFileExists(t, filepath.Join(root, "samples", "2026", "10", "abc-loop.wav.part"))
}

func TestLocalStoreKeepsKeysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "../../escape.txt", strings.NewReader("x"), "text/plain")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "escape.txt"))

	_, err = store.Upload(context.Background(), "/", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)
}

func TestLocalStoreHonoursCancellation(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Upload(ctx, "a.mp3", strings.NewReader("x"), "audio/mpeg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRateLimitedDisabled(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	assert.Same(t, store, NewRateLimited(store, 0))
}

func TestRateLimitedWaitsForToken(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	limited := NewRateLimited(store, 1)

	ctx := context.Background()
	_, err = limited.Upload(ctx, "one.mp3", strings.NewReader("1"), "audio/mpeg")
	require.NoError(t, err)

	// The bucket is empty now; a short deadline cannot be met.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = limited.Upload(short, "two.mp3", strings.NewReader("2"), "audio/mpeg")
	assert.Error(t, err)
}

func TestNewStorage(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Backend: "local", LocalDir: t.TempDir()}}
	store, err := NewStorage(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	cfg.Storage.UploadsPerSecond = 5
	store, err = NewStorage(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RateLimited{}, store)

	cfg.Storage.Backend = "r2"
	_, err = NewStorage(cfg)
	assert.Error(t, err)

	cfg.Storage.Backend = "ftp"
	_, err = NewStorage(cfg)
	assert.Error(t, err)
}

func TestR2ClientPublicURL(t *testing.T) {
	c, err := NewR2Client(&config.R2Config{
		AccountID:       "acc",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		BucketName:      "samples",
		PublicURL:       "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/previews/a.mp3", c.GetPublicURL("previews/a.mp3"))

	c, err = NewR2Client(&config.R2Config{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		BucketName:      "samples",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/samples/previews/a.mp3", c.GetPublicURL("previews/a.mp3"))
}
