package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyreel/internal/config"
	"storyreel/internal/library"
	"storyreel/internal/logging"
	"storyreel/internal/render"
	"storyreel/internal/services"
)

const defaultQueueSize = 32

// Runner executes one resolved job.
type Runner interface {
	Run(ctx context.Context, job render.Job) render.Result
}

// Recorder persists queued jobs so they are visible before a worker picks
// them up, and records the ones dropped at shutdown.
type Recorder interface {
	Enqueue(ctx context.Context, record render.JobRecord) error
	Finish(ctx context.Context, result render.Result) error
}

// StatusSummary reports queue and worker state.
type StatusSummary struct {
	Running   bool      `json:"running"`
	Queued    int       `json:"queued"`
	Active    []string  `json:"active"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	LastError string    `json:"last_error,omitempty"`
	LastJobAt time.Time `json:"last_job_at,omitzero"`
}

// Manager resolves requests and runs them through a Runner.
type Manager struct {
	cfg     *config.Config
	library *library.Library
	runner   Runner
	recorder Recorder
	logger   *slog.Logger
	workers  int

	queue chan render.Job

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	active    map[string]struct{}
	completed int
	failed    int
	lastErr   error
	lastJobAt time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithQueueSize bounds the number of queued jobs.
func WithQueueSize(size int) ManagerOption {
	return func(m *Manager) {
		if size > 0 {
			m.queue = make(chan render.Job, size)
		}
	}
}

// WithWorkers sets how many jobs run at once.
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithRecorder records queued jobs in a job store.
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = r
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, lib *library.Library, runner Runner, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:     cfg,
		library: lib,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "workflow"),
		workers: 1,
		queue:   make(chan render.Job, defaultQueueSize),
		active:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run resolves and executes req synchronously.
func (m *Manager) Run(ctx context.Context, req Request) (render.Result, error) {
	job, err := m.Resolve(req)
	if err != nil {
		return render.Result{}, err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	result := m.execute(ctx, job)
	return result, result.Err
}

// Submit resolves req and queues it, returning the job ID. The running
// check, the queue record and the send happen under one lock, so a job is
// either accepted before Stop or rejected.
func (m *Manager) Submit(ctx context.Context, req Request) (string, error) {
	job, err := m.Resolve(req)
	if err != nil {
		return "", err
	}
	job.ID = uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "submit", "workflow manager is not running", nil)
	}
	if len(m.queue) == cap(m.queue) {
		return "", services.Wrap(services.ErrResourceExhausted, "workflow", "submit", "render queue is full", nil)
	}
	if m.recorder != nil {
		record := render.JobRecord{ID: job.ID, Title: job.Title, Source: job.Source, OutputPath: job.OutputPath}
		if err := m.recorder.Enqueue(context.WithoutCancel(ctx), record); err != nil {
			return "", services.Wrap(services.ErrFileSystem, "workflow", "submit", "record queued job", err)
		}
	}
	// Only Submit sends, always under m.mu, so the capacity check holds.
	m.queue <- job

	m.logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String("job_id", job.ID),
		logging.String("title", job.Title),
		logging.String("source", job.Source),
	)
	return job.ID, nil
}

// Start launches the queue workers.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for range m.workers {
		m.wg.Add(1)
		go m.worker(runCtx)
	}
	m.logger.Info("workflow started", logging.Int("workers", m.workers))
	return nil
}

// Stop cancels running jobs and waits for the workers to exit. Queued jobs
// that have not started are dropped and recorded as failed.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	dropped := 0
drain:
	for {
		select {
		case job := <-m.queue:
			dropped++
			m.recordDropped(job)
		default:
			break drain
		}
	}
	m.logger.Info("workflow stopped", logging.Int("dropped_jobs", dropped))
}

func (m *Manager) recordDropped(job render.Job) {
	if m.recorder == nil {
		return
	}
	result := render.Result{
		JobID:    job.ID,
		State:    render.StateFailed,
		FailedIn: render.StateQueued,
		Err:      fmt.Errorf("dropped from the queue at shutdown: %w", context.Canceled),
	}
	if err := m.recorder.Finish(context.Background(), result); err != nil {
		logging.WarnWithContext(m.logger, "dropped job not recorded", "workflow_record_failed",
			logging.String("job_id", job.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job stays queued until the next serve start marks it interrupted"),
		)
	}
}

// Status returns a snapshot of the manager state.
func (m *Manager) Status() StatusSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := StatusSummary{
		Running:   m.running,
		Queued:    len(m.queue),
		Completed: m.completed,
		Failed:    m.failed,
		LastJobAt: m.lastJobAt,
	}
	for id := range m.active {
		summary.Active = append(summary.Active, id)
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	return summary
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.queue:
			if ctx.Err() != nil {
				m.recordDropped(job)
				return
			}
			m.execute(ctx, job)
		}
	}
}

func (m *Manager) execute(ctx context.Context, job render.Job) render.Result {
	m.mu.Lock()
	m.active[job.ID] = struct{}{}
	m.mu.Unlock()

	result := m.runner.Run(ctx, job)

	m.mu.Lock()
	delete(m.active, job.ID)
	m.lastJobAt = time.Now()
	if result.Err != nil {
		m.failed++
		m.lastErr = result.Err
	} else {
		m.completed++
	}
	m.mu.Unlock()
	return result
}
