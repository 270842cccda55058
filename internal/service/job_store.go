package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/samples/internal/model"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrJobNotCompleted = errors.New("job not completed")
	ErrJobFinished     = errors.New("job already completed")
)

const jobTTL = 24 * time.Hour

// JobStore persists job records. Cancel requests live beside the record so a
// worker rewriting the record cannot clear them.
type JobStore interface {
	Save(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	RequestCancel(ctx context.Context, jobID string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)
}

// RedisJobStore keeps jobs under job:<id> and cancel flags under
// job:<id>:cancel, both for a day
type RedisJobStore struct {
	redis *redis.Client
}

func NewRedisJobStore(redisClient *redis.Client) *RedisJobStore {
	return &RedisJobStore{redis: redisClient}
}

func (s *RedisJobStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, jobTTL).Err()
}

func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func (s *RedisJobStore) RequestCancel(ctx context.Context, jobID string) error {
	return s.redis.Set(ctx, fmt.Sprintf("job:%s:cancel", jobID), 1, jobTTL).Err()
}

func (s *RedisJobStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	n, err := s.redis.Exists(ctx, fmt.Sprintf("job:%s:cancel", jobID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
