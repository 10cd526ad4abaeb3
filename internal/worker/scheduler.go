// Package worker runs the periodic background jobs.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// JobFunc is one unit of background work. It returns a summary for stats.
type JobFunc func(ctx context.Context) (interface{}, error)

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
	kick     chan struct{}

	// runMu serializes runs; mu guards the stats and is never held while run executes.
	runMu      sync.Mutex
	mu         sync.Mutex
	lastRun    time.Time
	lastResult interface{}
	lastError  string
	runCount   int64
}

// Scheduler runs each registered job on its own interval. Runs of the same job
// never overlap.
type Scheduler struct {
	jobs    map[string]*job
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a job. Jobs must be added before Start.
func (s *Scheduler) AddJob(name string, interval time.Duration, run JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("%w: job '%s' has interval %v", ErrInvalidInterval, name, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[name] = &job{
		name:     name,
		interval: interval,
		run:      run,
		kick:     make(chan struct{}, 1),
	}
	log.Printf("Added job '%s' with interval %v", name, interval)
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(j)
	}
	log.Printf("Job scheduler started with %d jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for their loops to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log.Printf("Job scheduler stopped")
}

// Kick asks a job to run as soon as possible. Kicks coalesce while one is pending.
func (s *Scheduler) Kick(name string) {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case j.kick <- struct{}{}:
	default:
	}
}

// Trigger runs a job synchronously and returns its result. It waits for an
// in-flight run of the same job to finish first.
func (s *Scheduler) Trigger(ctx context.Context, name string) (interface{}, error) {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownJob
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetStats reports each job's last run. It does not wait for running jobs.
func (s *Scheduler) GetStats() map[string]interface{} {
	s.mu.RLock()
	running := s.running
	snapshot := make(map[string]*job, len(s.jobs))
	for name, j := range s.jobs {
		snapshot[name] = j
	}
	s.mu.RUnlock()

	jobs := make(map[string]interface{}, len(snapshot))
	for name, j := range snapshot {
		j.mu.Lock()
		entry := map[string]interface{}{
			"interval":  j.interval.String(),
			"run_count": j.runCount,
		}
		if !j.lastRun.IsZero() {
			entry["last_run"] = j.lastRun.Format(time.RFC3339)
		}
		if j.lastError != "" {
			entry["last_error"] = j.lastError
		}
		if j.lastResult != nil {
			entry["last_result"] = j.lastResult
		}
		j.mu.Unlock()
		jobs[name] = entry
	}

	return map[string]interface{}{
		"running": running,
		"jobs":    jobs,
	}
}

func (s *Scheduler) loop(j *job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-j.kick:
		case <-s.ctx.Done():
			return
		}

		if _, err := s.execute(s.ctx, j); err != nil && s.ctx.Err() == nil {
			log.Printf("Job '%s' failed: %v", j.name, err)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) (interface{}, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	result, err := j.run(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.runCount++
	j.lastRun = time.Now()
	j.lastResult = result
	j.lastError = ""
	if err != nil {
		j.lastError = err.Error()
	}
	return result, err
}
