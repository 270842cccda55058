package cli

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/makeasinger/samples/internal/audio"
	"github.com/makeasinger/samples/internal/catalog"
	"github.com/makeasinger/samples/internal/client"
	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/ingest"
	"github.com/makeasinger/samples/internal/metrics"
	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/internal/parser"
	"github.com/makeasinger/samples/internal/transcode"
)

// App holds the assembled pipeline and the resources it owns
type App struct {
	Config   *config.Config
	Pipeline *ingest.Pipeline
	Catalog  *catalog.GormWriter
	Registry *prometheus.Registry
}

// Build validates cfg and wires storage, catalog, transcoder, decoder and
// metrics into an ingestion pipeline.
func Build(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := client.NewStorage(cfg)
	if err != nil {
		return nil, model.ConfigError("storage: %v", err)
	}

	cat, err := catalog.Open(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewIngestMetrics(reg)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	params := model.DefaultPreviewParams()
	params.SampleRate = cfg.FFmpeg.SampleRate
	params.Channels = cfg.FFmpeg.Channels
	params.BitrateKbps = cfg.FFmpeg.BitrateKbps

	previewer := transcode.NewPreviewer(
		transcode.NewFFmpeg(cfg.FFmpeg.FFmpegPath),
		transcode.NewFFprobe(cfg.FFmpeg.FFprobePath),
		params,
		cfg.Pipeline.PreviewMax(),
	)
	previewer.LongThreshold = cfg.Pipeline.LongTrack()
	previewer.OffsetRatio = cfg.Pipeline.PreviewOffsetRatio

	p, err := ingest.New(ingest.Deps{
		Parser:    parser.New(parserOptions(cfg)),
		Previewer: previewer,
		Decoder:   audio.NewRouter(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.AnalysisSampleRate),
		Storage:   store,
		Catalog:   cat,
		Tags:      ingest.EmbeddedTags{},
		Metrics:   m,
	}, ingest.Options{
		TempDir:     cfg.Pipeline.TempDir,
		PeakCount:   cfg.Pipeline.PeakCount,
		Concurrency: cfg.Pipeline.Concurrency,
		BatchDelay:  cfg.Pipeline.BatchDelay(),
	})
	if err != nil {
		cat.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Pipeline: p,
		Catalog:  cat,
		Registry: reg,
	}, nil
}

func parserOptions(cfg *config.Config) parser.Options {
	opts := parser.DefaultOptions()
	opts.BPMMin = cfg.Pipeline.BPMMin
	opts.BPMMax = cfg.Pipeline.BPMMax
	opts.DefaultProducer = cfg.Pipeline.DefaultProducer
	opts.Extensions = append(opts.Extensions, cfg.Pipeline.Extensions...)
	return opts
}

// Close releases the catalog connection
func (a *App) Close() error {
	if a == nil || a.Catalog == nil {
		return nil
	}
	return a.Catalog.Close()
}

// exitCode maps an error to a process exit status: 2 for configuration
// problems, 1 for everything else.
func exitCode(err error) int {
	var ie *model.IngestError
	if errors.As(err, &ie) && ie.Kind == model.ErrorKindConfig {
		return 2
	}
	return 1
}
