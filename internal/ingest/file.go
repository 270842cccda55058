package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/internal/waveform"
)

// fileRun is the state of one file moving through the stages
type fileRun struct {
	p     *Pipeline
	batch context.Context // observed for cancellation between stages
	step  context.Context // stages run to completion once started
	in    model.RawAudioInput
	opts  BatchOptions
	log   *logrus.Entry

	stage      model.Stage
	stageStart time.Time
}

// enter moves to the next stage unless the batch was cancelled
func (r *fileRun) enter(next model.Stage) *model.IngestError {
	r.leave()
	if err := r.batch.Err(); err != nil {
		return model.NewIngestError(model.ErrorKindCancelled, next, err)
	}
	r.stage = next
	r.stageStart = time.Now()
	r.log.WithField("stage", next).Debug("stage started")
	return nil
}

func (r *fileRun) leave() {
	if r.stage == model.StageQueued || r.stageStart.IsZero() {
		return
	}
	r.p.deps.Metrics.ObserveStage(r.stage, time.Since(r.stageStart))
	r.stageStart = time.Time{}
}

func (r *fileRun) fail(kind model.ErrorKind, err error) *model.IngestError {
	r.leave()
	return model.NewIngestError(kind, r.stage, err)
}

func (r *fileRun) execute() (string, *model.IngestError) {
	if err := r.batch.Err(); err != nil {
		return "", model.NewIngestError(model.ErrorKindCancelled, model.StageQueued, err)
	}

	tmp, err := os.MkdirTemp(r.p.opts.TempDir, "ingest-*")
	if err != nil {
		return "", model.NewIngestError(model.ErrorKindTranscode, model.StageQueued,
			fmt.Errorf("failed to create temp area: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			r.log.WithError(err).Warn("failed to remove temp area")
		}
	}()

	// Parsing
	if ierr := r.enter(model.StageParsing); ierr != nil {
		return "", ierr
	}
	meta := r.p.deps.Parser.ParseWithGenre(r.in.Filename, r.opts.Genre)
	artist := r.opts.Artist

	// Transcoding
	if ierr := r.enter(model.StageTranscoding); ierr != nil {
		return "", ierr
	}
	ext := strings.ToLower(filepath.Ext(r.in.Filename))
	srcPath := filepath.Join(tmp, "source"+ext)
	size, err := stage(r.in, srcPath)
	if err != nil {
		return "", r.fail(model.ErrorKindTranscode, err)
	}
	if r.p.deps.Tags != nil {
		hints := readHints(r.p.deps.Tags, srcPath, r.log)
		if r.opts.Genre == "" && hints.Genre != "" {
			meta = r.p.deps.Parser.ParseWithGenre(r.in.Filename, hints.Genre)
		}
		if artist == "" {
			artist = hints.Artist
		}
	}
	clip, _, err := r.p.deps.Previewer.MakePreview(r.step, srcPath, tmp)
	if err != nil {
		return "", r.fail(model.ErrorKindTranscode, err)
	}

	// ExtractingPeaks
	if ierr := r.enter(model.StageExtractingPeaks); ierr != nil {
		return "", ierr
	}
	peaks := r.extractPeaks(srcPath)

	// Uploading
	if ierr := r.enter(model.StageUploading); ierr != nil {
		return "", ierr
	}
	keys := NewArtifactKeys(r.p.opts.Now(), meta.Name, ext, clip.Params.Extension)
	fullURL, err := r.upload(keys.Full, srcPath, ContentType(ext))
	if err != nil {
		return "", r.fail(model.ErrorKindUpload, err)
	}
	previewURL, err := r.p.deps.Storage.Upload(r.step, keys.Preview, bytes.NewReader(clip.Data), clip.Params.ContentType)
	if err != nil {
		r.log.WithField("key", keys.Full).Warn("orphaned artifact left in storage")
		return "", r.fail(model.ErrorKindUpload, fmt.Errorf("preview: %w", err))
	}

	// WritingCatalog
	if ierr := r.enter(model.StageWritingCatalog); ierr != nil {
		r.logOrphans(keys)
		return "", ierr
	}
	rec := &model.CatalogRecord{
		Name:             meta.Name,
		BPM:              meta.BPM,
		Key:              meta.Key,
		Genre:            meta.Genre,
		Tags:             meta.Tags,
		Producer:         meta.Producer,
		OriginalFilename: r.in.Filename,
		FullAudioURL:     fullURL,
		PreviewURL:       previewURL,
		WaveformPeaks:    peaks,
		FileSize:         size,
		PreviewDuration:  clip.Duration.Seconds(),
	}
	if artist != "" {
		artistID, err := r.p.deps.Catalog.GetOrCreateArtist(r.step, artist)
		if err != nil {
			r.logOrphans(keys)
			return "", r.fail(model.ErrorKindCatalogWrite, fmt.Errorf("artist: %w", err))
		}
		rec.ArtistID = artistID
	}
	id, err := r.p.deps.Catalog.InsertSample(r.step, rec)
	if err != nil {
		r.logOrphans(keys)
		return "", r.fail(model.ErrorKindCatalogWrite, err)
	}

	r.leave()
	r.stage = model.StageDone
	return id, nil
}

// extractPeaks never fails the file: undecodable audio gets a silent waveform
func (r *fileRun) extractPeaks(srcPath string) []float64 {
	n := r.p.opts.PeakCount
	pcm, err := r.p.deps.Decoder.Decode(r.step, srcPath)
	if err != nil {
		ierr := model.NewIngestError(model.ErrorKindPeakExtraction, model.StageExtractingPeaks, err)
		r.log.WithField("kind", ierr.Kind).Warnf("using silent waveform: %v", err)
		r.p.deps.Metrics.RecordSoftFailure(ierr.Kind)
		return waveform.Zero(n)
	}
	return waveform.ExtractPeaks(pcm.Samples, n)
}

func (r *fileRun) upload(key, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return r.p.deps.Storage.Upload(r.step, key, f, contentType)
}

func (r *fileRun) logOrphans(keys ArtifactKeys) {
	r.log.WithFields(logrus.Fields{"full": keys.Full, "preview": keys.Preview}).
		Warn("orphaned artifacts left in storage")
}

// stage copies the input into dst and returns the number of bytes written
func stage(in model.RawAudioInput, dst string) (int64, error) {
	if in.Open == nil {
		return 0, fmt.Errorf("input %q has no payload", in.Filename)
	}
	src, err := in.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to stage input: %w", err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stage input: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("input %q is empty", in.Filename)
	}
	return n, nil
}
