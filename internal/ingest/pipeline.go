// Package ingest turns raw audio files into catalog entries: parse the
// filename, cut a preview, extract waveform peaks, upload both artifacts and
// write the catalog record.
package ingest

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/makeasinger/samples/internal/audio"
	"github.com/makeasinger/samples/internal/catalog"
	"github.com/makeasinger/samples/internal/client"
	"github.com/makeasinger/samples/internal/logging"
	"github.com/makeasinger/samples/internal/metrics"
	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/internal/parser"
	"github.com/makeasinger/samples/internal/transcode"
)

var logger = logging.Zone("samples/ingest")

// Deps are the collaborators of a Pipeline. Metrics and Tags are optional.
type Deps struct {
	Parser    *parser.Parser
	Previewer *transcode.Previewer
	Decoder   audio.Decoder
	Storage   client.StorageClient
	Catalog   catalog.Writer
	Tags      TagReader
	Metrics   *metrics.IngestMetrics
}

// Options are the pipeline-wide settings
type Options struct {
	TempDir     string
	PeakCount   int
	Concurrency int
	BatchDelay  time.Duration
	Now         func() time.Time
}

// Pipeline ingests files. It is safe for concurrent use.
type Pipeline struct {
	deps Deps
	opts Options
}

// New validates the collaborators and options. Problems are reported as
// config-kind IngestErrors.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Parser == nil:
		return nil, model.ConfigError("ingest: parser is required")
	case deps.Previewer == nil || deps.Previewer.Transcoder == nil || deps.Previewer.Prober == nil:
		return nil, model.ConfigError("ingest: previewer with transcoder and prober is required")
	case deps.Decoder == nil:
		return nil, model.ConfigError("ingest: decoder is required")
	case deps.Storage == nil:
		return nil, model.ConfigError("ingest: storage client is required")
	case deps.Catalog == nil:
		return nil, model.ConfigError("ingest: catalog writer is required")
	}
	if opts.PeakCount < 1 {
		return nil, model.ConfigError("ingest: peak count must be positive, got %d", opts.PeakCount)
	}
	if opts.Concurrency < 1 {
		return nil, model.ConfigError("ingest: concurrency must be positive, got %d", opts.Concurrency)
	}
	if opts.BatchDelay < 0 {
		return nil, model.ConfigError("ingest: batch delay must not be negative")
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{deps: deps, opts: opts}, nil
}

// IngestFile runs one file through every stage. It never returns an error:
// the outcome, including failures, is in the result. The file's temp area is
// removed on every path.
func (p *Pipeline) IngestFile(ctx context.Context, index int, in model.RawAudioInput, opts BatchOptions) model.IngestionResult {
	start := time.Now()
	log := logger.WithFields(logrus.Fields{"file": in.Filename, "index": index})

	p.deps.Metrics.FileStarted()
	defer p.deps.Metrics.FileFinished()

	run := &fileRun{
		p:     p,
		batch: ctx,
		step:  context.WithoutCancel(ctx),
		in:    in,
		opts:  opts,
		log:   log,
		stage: model.StageQueued,
	}
	id, ierr := run.execute()

	res := model.IngestionResult{
		Index:           index,
		Filename:        in.Filename,
		Success:         ierr == nil,
		CatalogRecordID: id,
		Stage:           model.StageDone,
		Error:           ierr,
		Duration:        time.Since(start),
	}
	if ierr != nil {
		res.Stage = model.StageFailed
		log.WithFields(logrus.Fields{"stage": ierr.Stage, "kind": ierr.Kind}).
			Warnf("ingest failed: %v", ierr.Err)
	} else {
		log.WithField("id", id).Infof("ingested in %s", res.Duration.Round(time.Millisecond))
	}
	p.deps.Metrics.RecordResult(res)
	return res
}

func cancelledResult(index int, in model.RawAudioInput, err error) model.IngestionResult {
	return model.IngestionResult{
		Index:    index,
		Filename: in.Filename,
		Stage:    model.StageFailed,
		Error:    model.NewIngestError(model.ErrorKindCancelled, model.StageQueued, err),
	}
}
