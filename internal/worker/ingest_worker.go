package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/makeasinger/samples/internal/ingest"
	"github.com/makeasinger/samples/internal/logging"
	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/internal/websocket"
)

var log = logging.Zone("samples/worker")

// JobTracker is the job bookkeeping the worker reports to
type JobTracker interface {
	UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error
	CompleteJob(ctx context.Context, jobID string, result interface{}) error
	FailJob(ctx context.Context, jobID string, errMsg string) error
	IsCanceled(ctx context.Context, jobID string) (bool, error)
}

// Notifier pushes job events to live subscribers
type Notifier interface {
	BroadcastProgress(jobID string, u websocket.ProgressUpdate)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// Batcher runs a batch through the ingestion pipeline
type Batcher interface {
	IngestBatch(ctx context.Context, files []model.RawAudioInput, opts ingest.BatchOptions) ([]model.IngestionResult, error)
}

// Options for IngestWorker
type Options struct {
	Extensions []string
	// FailureLog is suffixed with the job ID; empty disables the log
	FailureLog string
	CancelPoll time.Duration
}

// IngestWorker processes directory ingest jobs
type IngestWorker struct {
	jobs     JobTracker
	pipeline Batcher
	hub      Notifier
	opts     Options
}

// NewIngestWorker creates a new ingest worker
func NewIngestWorker(jobs JobTracker, pipeline Batcher, hub Notifier, opts Options) *IngestWorker {
	if opts.CancelPoll <= 0 {
		opts.CancelPoll = 2 * time.Second
	}
	return &IngestWorker{
		jobs:     jobs,
		pipeline: pipeline,
		hub:      hub,
		opts:     opts,
	}
}

// ProcessTask handles ingest task processing
func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID := taskPayload.JobID
	jlog := log.WithField("job_id", jobID)

	var payload model.IngestJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal ingest payload: %v: %w", err, asynq.SkipRetry)
	}
	if canceled, err := w.jobs.IsCanceled(ctx, jobID); err == nil && canceled {
		jlog.Info("job canceled before start, skipping")
		return nil
	}
	jlog.WithField("directory", payload.Directory).Info("starting ingest job")

	w.updateProgress(ctx, jobID, websocket.ProgressUpdate{Step: "Scanning directory..."})
	files, err := ingest.LoadDirectory(payload.Directory, w.opts.Extensions, payload.Recursive)
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return fmt.Errorf("failed to load %s: %v: %w", payload.Directory, err, asynq.SkipRetry)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	watching := make(chan struct{})
	go func() {
		defer close(watching)
		w.watchCancel(runCtx, jobID, cancel)
	}()

	start := time.Now()
	results, err := w.pipeline.IngestBatch(runCtx, files, ingest.BatchOptions{
		Genre:  payload.Genre,
		Artist: payload.Artist,
		OnProgress: func(p ingest.Progress) {
			w.updateProgress(ctx, jobID, websocket.ProgressUpdate{
				Progress:   p.Percent(),
				Step:       fmt.Sprintf("Window %d/%d", p.Window, p.Windows),
				Processed:  p.Processed,
				Successful: p.Successful,
				Failed:     p.Failed,
			})
		},
	})
	cancel()
	<-watching
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return fmt.Errorf("ingest batch: %v: %w", err, asynq.SkipRetry)
	}

	summary := ingest.Summarize(results, time.Since(start))
	if path := failureLogPath(w.opts.FailureLog, jobID); path != "" {
		if err := ingest.WriteFailureLog(path, summary.Failures); err != nil {
			jlog.WithError(err).Warn("could not write failure log")
		}
	}

	if err := w.jobs.CompleteJob(ctx, jobID, summary); err != nil {
		jlog.WithError(err).Error("failed to save result")
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}
	w.hub.BroadcastComplete(jobID, summary)

	jlog.WithFields(logrus.Fields{
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}).Info("ingest job finished")
	return nil
}

// watchCancel polls the job record and cancels the batch once a cancel is
// requested. It returns when ctx is done.
func (w *IngestWorker) watchCancel(ctx context.Context, jobID string, cancel context.CancelFunc) {
	ticker := time.NewTicker(w.opts.CancelPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			canceled, err := w.jobs.IsCanceled(ctx, jobID)
			if err != nil {
				log.WithError(err).WithField("job_id", jobID).Debug("cancel poll failed")
				continue
			}
			if canceled {
				log.WithField("job_id", jobID).Info("cancel requested, stopping batch")
				cancel()
				return
			}
		}
	}
}

func (w *IngestWorker) updateProgress(ctx context.Context, jobID string, u websocket.ProgressUpdate) {
	if err := w.jobs.UpdateJobProgress(ctx, jobID, u.Progress, u.Step); err != nil {
		log.WithError(err).Warn("failed to update progress")
	}
	u.Status = model.JobStatusRunning
	w.hub.BroadcastProgress(jobID, u)
}

func (w *IngestWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.jobs.FailJob(ctx, jobID, errMsg); err != nil {
		log.WithError(err).Error("failed to mark job as failed")
	}
	w.hub.BroadcastError(jobID, "INGEST_FAILED", errMsg)
}

// failureLogPath turns logs/failed.json into logs/failed-<jobID>.json
func failureLogPath(base, jobID string) string {
	if base == "" {
		return ""
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + jobID + ext
}
