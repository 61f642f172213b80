// Package jobs runs media requests on a bounded worker pool and keeps their
// status for the HTTP API.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/media"
)

// Status represents the current state of a job
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

var (
	// ErrQueueFull is returned by Add when the backlog is at capacity
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Add after Stop
	ErrStopped = errors.New("job queue stopped")
)

// Job is one queued media request
type Job struct {
	ID             string     `json:"id"`
	Source         string     `json:"source"`
	Kind           media.Kind `json:"kind"`
	ConversationID string     `json:"conversation_id"`
	Status         Status     `json:"status"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	req    media.Request
	ctx    context.Context
	cancel context.CancelFunc
}

// RunFunc executes one request
type RunFunc func(ctx context.Context, req media.Request) error

// Queue manages jobs with a worker pool
type Queue struct {
	jobs          map[string]*Job
	mu            sync.RWMutex
	queue         chan *Job
	maxConcurrent int
	run           RunFunc
	wg            sync.WaitGroup
	stopped       bool
	stopCleanup   chan struct{}
	retention     time.Duration
}

// NewQueue creates a queue running at most maxConcurrent jobs with a
// backlog of capacity
func NewQueue(maxConcurrent, capacity int, run RunFunc) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if capacity <= 0 {
		capacity = 100
	}
	return &Queue{
		jobs:          make(map[string]*Job),
		queue:         make(chan *Job, capacity),
		maxConcurrent: maxConcurrent,
		run:           run,
		stopCleanup:   make(chan struct{}),
		retention:     time.Hour,
	}
}

// Start begins the worker pool and the cleanup routine
func (q *Queue) Start() {
	for i := 0; i < q.maxConcurrent; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	go q.cleanupLoop(10 * time.Minute)
}

// Stop stops accepting jobs, cancels the running ones and waits for the
// workers. Queued jobs are drained as cancelled.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	for _, job := range q.jobs {
		if !job.Status.finished() {
			job.cancel()
		}
	}
	close(q.queue)
	close(q.stopCleanup)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.queue {
		q.process(job)
	}
}

func (q *Queue) process(job *Job) {
	if job.ctx.Err() != nil {
		q.update(job.ID, StatusCancelled, "cancelled before start")
		return
	}
	q.update(job.ID, StatusRunning, "")

	err := q.safeRun(job)
	job.cancel()

	switch {
	case err == nil:
		q.update(job.ID, StatusCompleted, "")
	case errors.Is(err, context.Canceled):
		q.update(job.ID, StatusCancelled, "cancelled")
	default:
		q.update(job.ID, StatusFailed, err.Error())
	}
}

func (q *Queue) safeRun(job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "jobs").Str("job", job.ID).Interface("panic", r).Msg("job panicked")
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return q.run(job.ctx, job.req)
}

func (q *Queue) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			q.cleanupOld()
		case <-q.stopCleanup:
			return
		}
	}
}

func (q *Queue) cleanupOld() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-q.retention)
	removed := 0
	for id, job := range q.jobs {
		if job.Status.finished() && job.UpdatedAt.Before(cutoff) {
			delete(q.jobs, id)
			removed++
		}
	}
	return removed
}

// Add queues a request. The job ID is the request ID. parent bounds the
// job's lifetime; Stop and Cancel also end it.
func (q *Queue) Add(parent context.Context, req media.Request) (*Job, error) {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	job := &Job{
		ID:             req.ID,
		Source:         req.Source,
		Kind:           req.Kind,
		ConversationID: req.ConversationID,
		Status:         StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
		req:            req,
		ctx:            ctx,
		cancel:         cancel,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		cancel()
		return nil, ErrStopped
	}
	if _, dup := q.jobs[job.ID]; dup {
		cancel()
		return nil, fmt.Errorf("job %s already queued", job.ID)
	}

	select {
	case q.queue <- job:
		q.jobs[job.ID] = job
		log.Debug().Str("component", "jobs").Str("job", job.ID).Int("backlog", len(q.queue)).Msg("job queued")
		jobCopy := *job
		return &jobCopy, nil
	default:
		cancel()
		return nil, ErrQueueFull
	}
}

// Get returns a copy of a job, or nil
func (q *Queue) Get(id string) *Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if job, ok := q.jobs[id]; ok {
		jobCopy := *job
		return &jobCopy
	}
	return nil
}

// List returns copies of all jobs, newest first
func (q *Queue) List() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	jobs := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		jobCopy := *job
		jobs = append(jobs, &jobCopy)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs
}

// Cancel cancels a queued or running job
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok || job.Status.finished() {
		return false
	}
	job.cancel()
	job.Status = StatusCancelled
	job.UpdatedAt = time.Now()
	return true
}

// Remove deletes one finished job
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok || !job.Status.finished() {
		return false
	}
	delete(q.jobs, id)
	return true
}

// ClearHistory removes all finished jobs
func (q *Queue) ClearHistory() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for id, job := range q.jobs {
		if job.Status.finished() {
			delete(q.jobs, id)
			count++
		}
	}
	return count
}

// update sets a job's status. A cancelled job stays cancelled.
func (q *Queue) update(id string, status Status, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return
	}
	if job.Status == StatusCancelled {
		return
	}
	job.Status = status
	if errMsg != "" {
		job.Error = errMsg
	}
	job.UpdatedAt = time.Now()
}
