package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/samples/internal/model"
)

type memJobStore struct {
	mu      sync.Mutex
	jobs    map[string][]byte
	cancels map[string]bool

	// beforeSave runs between a caller's Get and the write of its Save
	beforeSave func()
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string][]byte), cancels: make(map[string]bool)}
}

// Save round-trips through JSON like the redis store does
func (m *memJobStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if hook := m.beforeSave; hook != nil {
		m.beforeSave = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = data
	return nil
}

func (m *memJobStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.Lock()
	data, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (m *memJobStore) RequestCancel(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels[jobID] = true
	return nil
}

func (m *memJobStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancels[jobID], nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueIngest}, nil
}

func TestStartIngest(t *testing.T) {
	store := newMemJobStore()
	queue := &fakeQueue{}
	svc := NewIngestService(store, queue)
	ctx := context.Background()

	resp, err := svc.StartIngest(ctx, &model.StartIngestRequest{Directory: "/srv/drop", Genre: "trap", Recursive: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.JobID)

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TaskTypeIngest, queue.tasks[0].Type())

	var task struct {
		JobID   string                 `json:"jobId"`
		Payload model.IngestJobPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &task))
	assert.Equal(t, resp.JobID, task.JobID)
	assert.Equal(t, "/srv/drop", task.Payload.Directory)
	assert.Equal(t, "trap", task.Payload.Genre)
	assert.True(t, task.Payload.Recursive)

	status, err := svc.GetStatus(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, status.Status)
}

func TestStartIngestEnqueueFailure(t *testing.T) {
	svc := NewIngestService(newMemJobStore(), &fakeQueue{err: errors.New("redis down")})
	_, err := svc.StartIngest(context.Background(), &model.StartIngestRequest{Directory: "/x"})
	assert.ErrorContains(t, err, "redis down")
}

func TestJobLifecycle(t *testing.T) {
	svc := NewIngestService(newMemJobStore(), &fakeQueue{})
	ctx := context.Background()

	resp, err := svc.StartIngest(ctx, &model.StartIngestRequest{Directory: "/x"})
	require.NoError(t, err)
	id := resp.JobID

	_, err = svc.GetResult(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotCompleted)

	require.NoError(t, svc.UpdateJobProgress(ctx, id, 40, "window 2/5"))
	status, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, status.Status)
	assert.Equal(t, 40, status.Progress)

	summary := model.BatchSummary{Total: 2, Successful: 1, Failed: 1,
		Failures: []model.FailureEntry{{Filename: "b.wav", Kind: model.ErrorKindUpload, Error: "503"}}}
	require.NoError(t, svc.CompleteJob(ctx, id, summary))

	got, err := svc.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Successful)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "b.wav", got.Failures[0].Filename)

	_, err = svc.Cancel(ctx, id)
	assert.ErrorIs(t, err, ErrJobFinished)
}

func TestCancel(t *testing.T) {
	svc := NewIngestService(newMemJobStore(), &fakeQueue{})
	ctx := context.Background()

	resp, err := svc.StartIngest(ctx, &model.StartIngestRequest{Directory: "/x"})
	require.NoError(t, err)

	canceled, err := svc.IsCanceled(ctx, resp.JobID)
	require.NoError(t, err)
	assert.False(t, canceled)

	status, err := svc.Cancel(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCanceled, status.Status)

	canceled, err = svc.IsCanceled(ctx, resp.JobID)
	require.NoError(t, err)
	assert.True(t, canceled)

	// Progress from a worker that has not noticed yet must not revive the job.
	require.NoError(t, svc.UpdateJobProgress(ctx, resp.JobID, 50, "window 1/2"))
	require.NoError(t, svc.CompleteJob(ctx, resp.JobID, model.BatchSummary{Total: 4, Successful: 2, Failed: 2}))

	st, err := svc.GetStatus(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCanceled, st.Status)

	summary, err := svc.GetResult(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
}

func TestCancelDuringProgressUpdate(t *testing.T) {
	store := newMemJobStore()
	svc := NewIngestService(store, &fakeQueue{})
	ctx := context.Background()

	resp, err := svc.StartIngest(ctx, &model.StartIngestRequest{Directory: "/x"})
	require.NoError(t, err)
	id := resp.JobID
	require.NoError(t, svc.UpdateJobProgress(ctx, id, 10, "window 1/4"))

	// The worker has read the running job; the cancel lands before its write.
	store.beforeSave = func() {
		status, err := svc.Cancel(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCanceled, status.Status)
	}
	require.NoError(t, svc.UpdateJobProgress(ctx, id, 50, "window 2/4"))

	canceled, err := svc.IsCanceled(ctx, id)
	require.NoError(t, err)
	assert.True(t, canceled)

	st, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCanceled, st.Status)

	_, err = svc.Cancel(ctx, id)
	assert.ErrorIs(t, err, ErrJobFinished)

	require.NoError(t, svc.CompleteJob(ctx, id, model.BatchSummary{Total: 4, Successful: 2, Failed: 2}))
	st, err = svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCanceled, st.Status)
}

func TestFailJobKeepsCancel(t *testing.T) {
	svc := NewIngestService(newMemJobStore(), &fakeQueue{})
	ctx := context.Background()

	resp, err := svc.StartIngest(ctx, &model.StartIngestRequest{Directory: "/x"})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, resp.JobID)
	require.NoError(t, err)
	require.NoError(t, svc.FailJob(ctx, resp.JobID, "scan failed"))

	st, err := svc.GetStatus(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCanceled, st.Status)
	require.NotNil(t, st.Error)
	assert.Equal(t, "scan failed", *st.Error)
}

func TestCancelAfterCompletion(t *testing.T) {
	store := newMemJobStore()
	svc := NewIngestService(store, &fakeQueue{})
	ctx := context.Background()

	resp, err := svc.StartIngest(ctx, &model.StartIngestRequest{Directory: "/x"})
	require.NoError(t, err)
	require.NoError(t, svc.CompleteJob(ctx, resp.JobID, model.BatchSummary{Total: 1, Successful: 1}))

	_, err = svc.Cancel(ctx, resp.JobID)
	assert.ErrorIs(t, err, ErrJobFinished)

	requested, err := store.CancelRequested(ctx, resp.JobID)
	require.NoError(t, err)
	assert.False(t, requested)
}

func TestFailJob(t *testing.T) {
	svc := NewIngestService(newMemJobStore(), &fakeQueue{})
	ctx := context.Background()

	resp, err := svc.StartIngest(ctx, &model.StartIngestRequest{Directory: "/x"})
	require.NoError(t, err)
	require.NoError(t, svc.FailJob(ctx, resp.JobID, "not a dir: /x"))

	status, err := svc.GetStatus(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, status.Status)
	require.NotNil(t, status.Error)
	assert.Equal(t, "not a dir: /x", *status.Error)

	_, err = svc.GetResult(ctx, resp.JobID)
	assert.ErrorIs(t, err, ErrJobNotCompleted)
}

func TestUnknownJob(t *testing.T) {
	svc := NewIngestService(newMemJobStore(), &fakeQueue{})
	_, err := svc.GetStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
