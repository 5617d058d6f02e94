// Appscope - Mobile App Market Intelligence and Review Harvesting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/appscope

// Package jobs provides the asynchronous crawl facility: a uuid-keyed
// registry, a bounded worker pool that owns job mutation, per-job event
// logs consumed by the SSE surface, and a reaper that evicts terminal
// jobs after a retention window.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/appscope/internal/logging"
	"github.com/tomtom215/appscope/internal/metrics"
	"github.com/tomtom215/appscope/internal/models"
)

var (
	ErrNotFound  = errors.New("job not found")
	ErrTerminal  = errors.New("job already in a terminal state")
	ErrQueueFull = errors.New("job queue full")
)

// RunFunc executes one job. Implementations report progress in [0,1]
// and may attach an event payload; both reach the job's SSE stream.
type RunFunc func(ctx context.Context, report Report) (interface{}, error)

// Report publishes job progress.
type Report func(progress float64, event map[string]interface{})

// Options tunes the manager.
type Options struct {
	Workers      int
	QueueDepth   int
	Retention    time.Duration
	ReapInterval time.Duration
}

// Manager owns the registry and the worker pool. Only the worker that
// dequeued a job mutates it past pending; terminal states are
// immutable.
type Manager struct {
	mu    sync.Mutex
	jobs  map[string]*entry
	queue chan *entry
	opts  Options
}

type entry struct {
	job    models.Job
	run    RunFunc
	cancel context.CancelFunc
	events *eventLog
}

// NewManager creates a job manager.
func NewManager(opts Options) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 64
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	if opts.ReapInterval <= 0 {
		opts.ReapInterval = 5 * time.Minute
	}
	return &Manager{
		jobs:  make(map[string]*entry),
		queue: make(chan *entry, opts.QueueDepth),
		opts:  opts,
	}
}

// Submit registers a job and enqueues it for the worker pool.
func (m *Manager) Submit(jobType string, request interface{}, run RunFunc) (string, error) {
	e := &entry{
		job: models.Job{
			ID:        uuid.NewString(),
			Type:      jobType,
			Status:    models.JobPending,
			Request:   request,
			CreatedAt: time.Now(),
		},
		run:    run,
		events: newEventLog(),
	}

	m.mu.Lock()
	m.jobs[e.job.ID] = e
	m.mu.Unlock()

	select {
	case m.queue <- e:
	default:
		m.mu.Lock()
		delete(m.jobs, e.job.ID)
		m.mu.Unlock()
		return "", ErrQueueFull
	}

	metrics.JobsCreated.WithLabelValues(jobType).Inc()
	metrics.JobQueueDepth.Set(float64(len(m.queue)))
	return e.job.ID, nil
}

// Get returns a snapshot of the job.
func (m *Manager) Get(id string) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return e.job, nil
}

// Cancel moves a pending or running job to cancelled. A running job's
// context is cancelled; the worker observes it and finalizes.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if e.job.Status.Terminal() {
		return ErrTerminal
	}
	if e.cancel != nil {
		e.cancel()
	}
	m.finalizeLocked(e, models.JobCancelled, nil, "cancelled by caller")
	return nil
}

// Subscribe attaches to the job's event stream. Buffered events are
// replayed first; the returned stop function must be called when the
// consumer goes away.
func (m *Manager) Subscribe(id string) (<-chan map[string]interface{}, func(), error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	ch, stop := e.events.subscribe()
	return ch, stop, nil
}

// Serve runs the worker pool until the context ends. It satisfies
// suture's service contract.
func (m *Manager) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(m.opts.Workers)
	for i := 0; i < m.opts.Workers; i++ {
		go func() {
			defer wg.Done()
			m.workerLoop(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (m *Manager) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-m.queue:
			metrics.JobQueueDepth.Set(float64(len(m.queue)))
			m.runJob(ctx, e)
		}
	}
}

func (m *Manager) runJob(ctx context.Context, e *entry) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if e.job.Status != models.JobPending {
		// Cancelled while queued.
		m.mu.Unlock()
		return
	}
	now := time.Now()
	e.job.Status = models.JobRunning
	e.job.StartedAt = &now
	e.cancel = cancel
	m.mu.Unlock()

	metrics.JobsActive.Inc()
	defer metrics.JobsActive.Dec()

	report := func(progress float64, event map[string]interface{}) {
		m.mu.Lock()
		if !e.job.Status.Terminal() {
			e.job.Progress = progress
		}
		m.mu.Unlock()
		if event != nil {
			e.events.publish(event)
		}
	}

	result, err := e.run(jobCtx, report)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e.job.Status.Terminal() {
		// Cancel won the race; keep the terminal state.
		return
	}
	if err != nil {
		m.finalizeLocked(e, models.JobFailed, nil, err.Error())
		logging.Warn().Err(err).Str("job_id", e.job.ID).Str("type", e.job.Type).Msg("job failed")
		return
	}
	m.finalizeLocked(e, models.JobCompleted, result, "")
}

// finalizeLocked moves a job to a terminal state. Caller holds mu.
func (m *Manager) finalizeLocked(e *entry, status models.JobStatus, result interface{}, errMsg string) {
	now := time.Now()
	e.job.Status = status
	e.job.CompletedAt = &now
	e.job.Result = result
	e.job.Error = errMsg
	if status == models.JobCompleted {
		e.job.Progress = 1
	}
	e.events.publish(map[string]interface{}{
		"type":   "job_" + string(status),
		"job_id": e.job.ID,
	})
	e.events.close()
	metrics.JobsCompleted.WithLabelValues(e.job.Type, string(status)).Inc()
}

// Reap evicts terminal jobs whose completion is older than the
// retention window, returning how many were removed.
func (m *Manager) Reap(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.jobs {
		if !e.job.Status.Terminal() || e.job.CompletedAt == nil {
			continue
		}
		if now.Sub(*e.job.CompletedAt) >= m.opts.Retention {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// Reaper periodically evicts expired terminal jobs. It is supervised
// as its own service next to the worker pool.
type Reaper struct {
	Manager *Manager
}

// Serve runs the reap loop until the context ends.
func (r *Reaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.Manager.opts.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.Manager.Reap(time.Now()); n > 0 {
				logging.Debug().Int("evicted", n).Msg("job reaper pass")
			}
		}
	}
}
