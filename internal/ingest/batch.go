package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/makeasinger/samples/internal/model"
)

// BatchOptions apply to every file of one batch
type BatchOptions struct {
	Genre  string // overrides inferred and embedded genres
	Artist string // overrides the embedded artist

	// Zero Concurrency and nil BatchDelay fall back to the pipeline Options.
	// A BatchDelay pointing at zero turns the pause off for this batch.
	Concurrency int
	BatchDelay  *time.Duration

	// OnProgress is called after each window completes, from the batch goroutine
	OnProgress func(Progress)
}

// Progress is reported once per window
type Progress struct {
	Window     int
	Windows    int
	Processed  int
	Total      int
	Successful int
	Failed     int
}

// Percent of files processed
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}
	return p.Processed * 100 / p.Total
}

// IngestBatch processes files in windows of Concurrency, pausing BatchDelay
// between windows. It returns exactly one result per input, in input order.
// A failing file never stops the batch. When ctx is cancelled, files that
// have not started are reported as cancelled and in-flight files stop after
// their current stage. The only error is a config error, returned before
// any file starts.
func (p *Pipeline) IngestBatch(ctx context.Context, files []model.RawAudioInput, opts BatchOptions) ([]model.IngestionResult, error) {
	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = p.opts.Concurrency
	}
	if concurrency < 1 {
		return nil, model.ConfigError("ingest: concurrency must be positive, got %d", concurrency)
	}
	delay := p.opts.BatchDelay
	if opts.BatchDelay != nil {
		delay = *opts.BatchDelay
	}
	if delay < 0 {
		return nil, model.ConfigError("ingest: batch delay must not be negative")
	}

	results := make([]model.IngestionResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	p.deps.Metrics.BatchStarted()
	sem := semaphore.NewWeighted(int64(concurrency))
	windows := (len(files) + concurrency - 1) / concurrency
	progress := Progress{Windows: windows, Total: len(files)}
	start := time.Now()

	logger.WithFields(logrus.Fields{
		"files":       len(files),
		"concurrency": concurrency,
		"windows":     windows,
	}).Info("batch started")

	for w := 0; w < windows; w++ {
		lo := w * concurrency
		hi := min(lo+concurrency, len(files))

		if err := ctx.Err(); err != nil {
			for i := lo; i < len(files); i++ {
				results[i] = cancelledResult(i, files[i], err)
			}
			progress.Processed = len(files)
			progress.Failed += len(files) - lo
			break
		}

		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = cancelledResult(i, files[i], err)
				continue
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer sem.Release(1)
				results[i] = p.IngestFile(ctx, i, files[i], opts)
			}(i)
		}
		wg.Wait()

		for i := lo; i < hi; i++ {
			if results[i].Success {
				progress.Successful++
			} else {
				progress.Failed++
			}
		}
		progress.Window = w + 1
		progress.Processed = hi

		logger.WithFields(logrus.Fields{
			"window":     progress.Window,
			"windows":    windows,
			"processed":  progress.Processed,
			"successful": progress.Successful,
			"failed":     progress.Failed,
		}).Info("window complete")
		if opts.OnProgress != nil {
			opts.OnProgress(progress)
		}

		if w < windows-1 && delay > 0 {
			if !sleep(ctx, delay) {
				continue // next iteration marks the rest cancelled
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"successful": progress.Successful,
		"failed":     progress.Failed,
		"elapsed":    time.Since(start).Round(time.Millisecond),
	}).Info("batch finished")
	return results, nil
}

// sleep waits for d or until ctx is done; it reports whether d elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
