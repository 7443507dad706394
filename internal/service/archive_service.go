package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/motionlab/capserver/internal/config"
	"github.com/motionlab/capserver/internal/model"
)

// ErrTaskNotFound signals that an archive task is unknown or expired.
var ErrTaskNotFound = errors.New("archive task not found")

// ArchiveService enqueues archive jobs for the background worker and exposes
// task state for polling.
type ArchiveService struct {
	rdb     *redis.Client
	taskTTL time.Duration
}

// NewArchiveService creates a new ArchiveService.
func NewArchiveService(cfg *config.Config, rdb *redis.Client) *ArchiveService {
	return &ArchiveService{rdb: rdb, taskTTL: cfg.ArchiveTaskTTL}
}

// Enqueue registers a pending archive task and pushes the job on the worker
// queue. The returned task ID is what the client polls.
func (s *ArchiveService) Enqueue(ctx context.Context, kind string, resourceID, requestedBy uuid.UUID) (*model.ArchiveTask, error) {
	job := model.ArchiveJob{
		TaskID:      uuid.New(),
		Kind:        kind,
		ResourceID:  resourceID,
		RequestedBy: requestedBy,
		EnqueuedAt:  time.Now().UTC(),
	}

	task := &model.ArchiveTask{
		TaskID:      job.TaskID,
		RequestedBy: requestedBy,
		State:       model.ArchiveStatePending,
	}
	if err := s.storeTask(ctx, task); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal archive job: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.ArchiveQueue, payload).Err(); err != nil {
		return nil, fmt.Errorf("enqueue archive job: %w", err)
	}
	return task, nil
}

// GetTask retrieves an archive task's current state.
func (s *ArchiveService) GetTask(ctx context.Context, taskID string) (*model.ArchiveTask, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ArchiveTaskKey(taskID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	task := &model.ArchiveTask{}
	if err := json.Unmarshal([]byte(raw), task); err != nil {
		return nil, fmt.Errorf("unmarshal archive task: %w", err)
	}
	return task, nil
}

// UpdateTask overwrites an archive task's state. Used by the worker to report
// progress and terminal results.
func (s *ArchiveService) UpdateTask(ctx context.Context, task *model.ArchiveTask) error {
	return s.storeTask(ctx, task)
}

func (s *ArchiveService) storeTask(ctx context.Context, task *model.ArchiveTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal archive task: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ArchiveTaskKey(task.TaskID.String()), payload, s.taskTTL).Err(); err != nil {
		return fmt.Errorf("store archive task: %w", err)
	}
	return nil
}
