package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/makeasinger/samples/internal/model"
)

const (
	TaskTypeIngest = "ingest:batch"
	QueueIngest    = "ingest"
)

// Enqueuer is the part of *asynq.Client the service needs
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IngestService handles ingest job management
type IngestService struct {
	jobs  JobStore
	queue Enqueuer
}

func NewIngestService(jobs JobStore, queue Enqueuer) *IngestService {
	return &IngestService{
		jobs:  jobs,
		queue: queue,
	}
}

// StartIngest queues a new directory ingest job
func (s *IngestService) StartIngest(ctx context.Context, req *model.StartIngestRequest) (*model.IngestJobResponse, error) {
	jobID := uuid.New().String()

	payload := &model.IngestJobPayload{
		Directory: req.Directory,
		Genre:     req.Genre,
		Artist:    req.Artist,
		Recursive: req.Recursive,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeIngest,
		Status:    model.JobStatusQueued,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}

	// Save job before the worker can see it
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := NewIngestTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.queue.Enqueue(task,
		asynq.Queue(QueueIngest),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.IngestJobResponse{JobID: jobID}, nil
}

// GetStatus returns the current status of a job
func (s *IngestService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
	}, nil
}

// GetResult returns the batch summary of a completed job
func (s *IngestService) GetResult(ctx context.Context, jobID string) (*model.BatchSummary, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded && job.Status != model.JobStatusCanceled {
		return nil, ErrJobNotCompleted
	}
	if len(job.Result) == 0 {
		return nil, ErrJobNotCompleted
	}

	var result model.BatchSummary
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// Cancel requests cancellation of a queued or running job. The worker notices
// on its next poll and stops the batch. The job record itself is left to the
// worker; readers see the request through load.
func (s *IngestService) Cancel(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if finished(job.Status) {
		return nil, ErrJobFinished
	}

	if err := s.jobs.RequestCancel(ctx, jobID); err != nil {
		return nil, err
	}

	// The worker may have finished between the read and the request.
	job, err = s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCanceled {
		return nil, ErrJobFinished
	}

	return &model.JobStatusResponse{Status: job.Status, Progress: job.Progress, CurrentStep: job.CurrentStep}, nil
}

// IsCanceled reports whether a cancel was requested (called by worker)
func (s *IngestService) IsCanceled(ctx context.Context, jobID string) (bool, error) {
	return s.jobs.CancelRequested(ctx, jobID)
}

// UpdateJobProgress updates job progress (called by worker)
func (s *IngestService) UpdateJobProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobStatusCanceled {
		return nil
	}

	job.Progress = progress
	job.CurrentStep = step

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.jobs.Save(ctx, job)
}

// CompleteJob stores the summary (called by worker). A canceled job keeps its
// status but still gets the partial summary.
func (s *IngestService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if job.Status != model.JobStatusCanceled {
		job.Status = model.JobStatusSucceeded
		job.Progress = 100
	}
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.jobs.Save(ctx, job)
}

// FailJob marks job as failed (called by worker). A canceled job stays
// canceled and only records the error.
func (s *IngestService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status != model.JobStatusCanceled {
		job.Status = model.JobStatusFailed
	}
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.jobs.Save(ctx, job)
}

// load reads the job and applies a pending cancel request to an unfinished
// record, so a worker save that raced the request cannot hide it.
func (s *IngestService) load(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if finished(job.Status) {
		return job, nil
	}

	requested, err := s.jobs.CancelRequested(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if requested {
		job.Status = model.JobStatusCanceled
	}
	return job, nil
}

func finished(status model.JobStatus) bool {
	switch status {
	case model.JobStatusSucceeded, model.JobStatusFailed, model.JobStatusCanceled:
		return true
	}
	return false
}

// NewIngestTask wraps a job payload in an asynq task
func NewIngestTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeIngest, data), nil
}
