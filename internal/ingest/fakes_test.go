package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/makeasinger/samples/internal/audio"
	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/internal/parser"
	"github.com/makeasinger/samples/internal/transcode"
)

// Payload markers steer the fakes: a file whose bytes contain one of these
// fails at the matching collaborator.
const (
	markCorrupt     = "corrupt"
	markNoPeaks     = "nopeaks"
	markNoUpload    = "noupload"
	markNoCatalog   = "nocatalog"
	markBadDuration = "noduration"
)

func payloadOf(path string) string {
	data, _ := os.ReadFile(path)
	return string(data)
}

type fakeTranscoder struct {
	delay  time.Duration
	active atomic.Int32
	peak   atomic.Int32
	calls  atomic.Int32
	hook   func()
}

func (f *fakeTranscoder) Transcode(ctx context.Context, req transcode.Request) (*transcode.Output, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.hook != nil {
		f.hook()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if strings.Contains(payloadOf(req.Source), markCorrupt) {
		return nil, errors.New("Invalid data found when processing input")
	}
	if err := os.WriteFile(req.Output, []byte("ID3preview"), 0o644); err != nil {
		return nil, err
	}
	return &transcode.Output{Path: req.Output, Size: 10}, nil
}

type fakeProber struct{}

func (fakeProber) Probe(ctx context.Context, path string) (time.Duration, error) {
	if strings.Contains(payloadOf(path), markBadDuration) {
		return 0, errors.New("ffprobe reported no duration")
	}
	return 90 * time.Second, nil
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(ctx context.Context, path string) (*audio.PCM, error) {
	if strings.Contains(payloadOf(path), markNoPeaks) {
		return nil, errors.New("unsupported codec")
	}
	samples := make([]float64, 1000)
	for i := range samples {
		samples[i] = float64(i%100) / 100
	}
	return &audio.PCM{Samples: samples, SampleRate: 22050, Channels: 1}, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if strings.Contains(string(data), markNoUpload) {
		return "", errors.New("503 Service Unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (s *memStore) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	return out
}

type memCatalog struct {
	mu        sync.Mutex
	records   map[string]model.CatalogRecord
	artists   map[string]string
	artistErr error
	seq       int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{records: make(map[string]model.CatalogRecord), artists: make(map[string]string)}
}

func (c *memCatalog) InsertSample(ctx context.Context, rec *model.CatalogRecord) (string, error) {
	if strings.Contains(rec.OriginalFilename, markNoCatalog) {
		return "", errors.New("duplicate key value violates unique constraint")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := fmt.Sprintf("sample-%d", c.seq)
	c.records[id] = *rec
	return id, nil
}

func (c *memCatalog) GetOrCreateArtist(ctx context.Context, name string) (string, error) {
	if c.artistErr != nil {
		return "", c.artistErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.artists[name]; ok {
		return id, nil
	}
	id := fmt.Sprintf("artist-%d", len(c.artists)+1)
	c.artists[name] = id
	return id, nil
}

func (c *memCatalog) record(id string) model.CatalogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[id]
}

type fakeTags struct {
	hints Hints
}

func (f fakeTags) Read(path string) (Hints, error) {
	return f.hints, nil
}

type harness struct {
	pipeline   *Pipeline
	transcoder *fakeTranscoder
	store      *memStore
	catalog    *memCatalog
	tempDir    string
}

func newHarness(t *testing.T, tune func(*Deps, *Options)) *harness {
	t.Helper()
	h := &harness{
		transcoder: &fakeTranscoder{},
		store:      newMemStore(),
		catalog:    newMemCatalog(),
		tempDir:    t.TempDir(),
	}
	deps := Deps{
		Parser:    parser.New(parser.DefaultOptions()),
		Previewer: transcode.NewPreviewer(h.transcoder, fakeProber{}, model.DefaultPreviewParams(), 25*time.Second),
		Decoder:   fakeDecoder{},
		Storage:   h.store,
		Catalog:   h.catalog,
	}
	opts := Options{
		TempDir:     h.tempDir,
		PeakCount:   100,
		Concurrency: 3,
		Now:         func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) },
	}
	if tune != nil {
		tune(&deps, &opts)
	}
	p, err := New(deps, opts)
	require.NoError(t, err)
	h.pipeline = p
	return h
}

func (h *harness) assertTempEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries, "temp areas must be removed")
}

func input(name, payload string) model.RawAudioInput {
	return model.InputFromBytes(name, []byte(payload))
}
