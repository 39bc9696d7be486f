package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// JobStatus is the outcome of a job's most recent run.
type JobStatus string

const (
	StatusIdle      JobStatus = "idle"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Job is a named background task run on a fixed interval.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Fn          func(ctx context.Context) error
}

type jobState struct {
	Job

	mu        sync.Mutex
	status    JobStatus
	lastError string
	lastRunAt *time.Time
	nextRunAt time.Time
}

// ListItem is the API-facing view of a registered job.
type ListItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      JobStatus  `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	NextRunAt   time.Time  `json:"next_run_at"`
}

// Scheduler runs registered jobs on their intervals. Jobs never overlap
// with themselves; a manual Run while a job is executing is a no-op.
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[string]*jobState
	root context.Context
}

func New() *Scheduler {
	return &Scheduler{jobs: make(map[string]*jobState)}
}

// Register adds a job. Call before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{
		Job:       job,
		status:    StatusIdle,
		nextRunAt: time.Now().Add(job.Interval),
	}
}

// Start launches one goroutine per job and returns immediately. The
// goroutines exit when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.root = ctx
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, js := range s.jobs {
		go s.loop(ctx, js)
	}
}

func (s *Scheduler) loop(ctx context.Context, js *jobState) {
	timer := time.NewTimer(js.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.execute(ctx, js)
			js.mu.Lock()
			js.nextRunAt = time.Now().Add(js.Interval)
			js.mu.Unlock()
			timer.Reset(js.Interval)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, js *jobState) {
	js.mu.Lock()
	if js.status == StatusRunning {
		js.mu.Unlock()
		return
	}
	js.status = StatusRunning
	js.mu.Unlock()

	started := time.Now()
	err := js.Fn(ctx)

	js.mu.Lock()
	js.lastRunAt = &started
	if err != nil {
		js.status = StatusFailed
		js.lastError = err.Error()
	} else {
		js.status = StatusSucceeded
		js.lastError = ""
	}
	js.mu.Unlock()
}

// Run triggers a job by name without waiting for its interval. The job
// executes in the background on the scheduler's own context, so it
// outlives a request-scoped caller.
func (s *Scheduler) Run(name string) error {
	s.mu.RLock()
	js, ok := s.jobs[name]
	root := s.root
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	if root == nil {
		root = context.Background()
	}
	go s.execute(root, js)
	return nil
}

// List returns every registered job sorted by name.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ListItem, 0, len(s.jobs))
	for _, js := range s.jobs {
		js.mu.Lock()
		items = append(items, ListItem{
			Name:        js.Name,
			Description: js.Description,
			Status:      js.status,
			LastError:   js.lastError,
			LastRunAt:   js.lastRunAt,
			NextRunAt:   js.nextRunAt,
		})
		js.mu.Unlock()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
