package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	redisc "github.com/distill-app/core/internal/pkg/redis"
)

// TaskStatus is the lifecycle state of a background task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// ErrTaskNotFound is returned for unknown or expired task IDs.
var ErrTaskNotFound = errors.New("task not found")

// Task is one unit of background work. Tasks live in Redis with a TTL;
// the durable outcome (the summary row) lives in the database.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedup_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	keyPrefix   = "distill:task:"
	keyIndex    = "distill:tasks:index"  // sorted set: score=created_at ms, member=task_id
	keyDedupSet = "distill:tasks:dedup:" // hash per task type: dedup_key -> task_id
	taskTTL     = 7 * 24 * time.Hour
)

// Service stores task records in Redis.
type Service struct {
	rc *redisc.Client
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc}
}

func (s *Service) taskKey(id string) string { return keyPrefix + id }

// Enqueue records a new pending task and reports created=true. When
// dedupKey is set and an in-flight task of the same type already holds
// it, that task is returned with created=false so the caller does not
// start the work a second time.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey string) (*Task, bool, error) {
	if dedupKey != "" {
		existing, err := s.rc.Raw().HGet(ctx, keyDedupSet+taskType, dedupKey).Result()
		if err == nil && existing != "" {
			if task, err := s.GetByID(ctx, existing); err == nil {
				return task, false, nil
			}
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	task := &Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Payload:   payloadBytes,
		Status:    TaskPending,
		DedupKey:  dedupKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, task, true); err != nil {
		return nil, false, err
	}
	return task, true, nil
}

func (s *Service) write(ctx context.Context, task *Task, index bool) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, s.taskKey(task.ID), data, taskTTL)
	if index {
		pipe.ZAdd(ctx, keyIndex, redis.Z{
			Score:  float64(task.CreatedAt.UnixMilli()),
			Member: task.ID,
		})
		if task.DedupKey != "" {
			pipe.HSet(ctx, keyDedupSet+task.Type, task.DedupKey, task.ID)
			pipe.Expire(ctx, keyDedupSet+task.Type, taskTTL)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// GetByID returns a task, or ErrTaskNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	data, err := s.rc.Raw().Get(ctx, s.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	var task Task
	return &task, json.Unmarshal(data, &task)
}

// UpdateStatus transitions a task and records an optional result or
// error message. Terminal transitions release the dedup key so the same
// work can be requested again.
func (s *Service) UpdateStatus(ctx context.Context, id string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	task.Status = status
	task.UpdatedAt = time.Now()
	task.Error = errMsg
	if result != nil {
		task.Result, _ = json.Marshal(result)
	}

	if status.terminal() && task.DedupKey != "" {
		s.rc.Raw().HDel(ctx, keyDedupSet+task.Type, task.DedupKey)
	}
	return s.write(ctx, task, false)
}

// List returns one page of tasks, newest first, optionally filtered by
// type and status. Expired records are skipped.
func (s *Service) List(ctx context.Context, page, size int, taskType *string, status *TaskStatus) ([]*Task, int64, error) {
	ids, err := s.rc.Raw().ZRevRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}

	matched := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if taskType != nil && task.Type != *taskType {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		matched = append(matched, task)
	}

	total := int64(len(matched))
	start := (page - 1) * size
	if start >= len(matched) {
		return []*Task{}, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// Cancel marks a pending task cancelled. Running tasks cannot be
// cancelled; their goroutine already owns the work.
func (s *Service) Cancel(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != TaskPending {
		return errors.New("can only cancel pending tasks")
	}
	return s.UpdateStatus(ctx, id, TaskCancelled, nil, "cancelled by user")
}

// DeleteByID removes one task record and its index entries.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, task)
}

func (s *Service) remove(ctx context.Context, tasks ...*Task) error {
	pipe := s.rc.Raw().TxPipeline()
	for _, task := range tasks {
		pipe.Del(ctx, s.taskKey(task.ID))
		pipe.ZRem(ctx, keyIndex, task.ID)
		if task.DedupKey != "" {
			pipe.HDel(ctx, keyDedupSet+task.Type, task.DedupKey)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteCompleted removes terminal tasks created before beforeMS
// (0 keeps no age floor and removes all terminal tasks).
func (s *Service) DeleteCompleted(ctx context.Context, beforeMS int64) error {
	ids, err := s.rc.Raw().ZRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return err
	}

	var stale []*Task
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if !task.Status.terminal() {
			continue
		}
		if beforeMS > 0 && task.CreatedAt.UnixMilli() >= beforeMS {
			continue
		}
		stale = append(stale, task)
	}
	if len(stale) == 0 {
		return nil
	}
	return s.remove(ctx, stale...)
}
