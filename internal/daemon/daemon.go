package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/workflow"
)

// Workflow is the job queue the daemon starts and stops.
type Workflow interface {
	Start(ctx context.Context) error
	Stop()
	Status() workflow.StatusSummary
}

// JobRecovery marks jobs interrupted by an earlier crash.
type JobRecovery interface {
	MarkInterrupted(ctx context.Context) (int64, error)
}

// Server is the HTTP API.
type Server interface {
	Start(ctx context.Context) error
	Addr() string
	Stop()
}

// Poller fetches stories until ctx ends.
type Poller interface {
	Poll(ctx context.Context, subreddits []string, interval time.Duration) error
}

// Intake consumes render requests from a broker.
type Intake interface {
	Start(ctx context.Context)
	Close() error
}

// Components are the services a daemon runs. Only Workflow is required.
type Components struct {
	Workflow      Workflow
	Jobs          JobRecovery
	Server        Server
	Poller        Poller
	Intake        Intake
	Sweep         func(ctx context.Context)
	SweepInterval time.Duration
}

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	parts  Components

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	Workflow     workflow.StatusSummary `json:"workflow"`
	APIAddress   string                 `json:"api_address,omitempty"`
	Polling      bool                   `json:"polling"`
	Intake       bool                   `json:"intake"`
	JobsDBPath   string                 `json:"jobs_db_path"`
	LockFilePath string                 `json:"lock_file_path"`
}

// New constructs a daemon.
func New(cfg *config.Config, parts Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || parts.Workflow == nil {
		return nil, errors.New("daemon requires config and workflow")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		parts:    parts,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock and launches every configured service. On failure
// everything already started is stopped again.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another storyreel server already holds %s", d.lockPath)
	}

	if d.parts.Jobs != nil {
		count, err := d.parts.Jobs.MarkInterrupted(ctx)
		if err != nil {
			logging.WarnWithContext(d.logger, "failed to mark interrupted jobs", "jobs_recovery_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale jobs keep their last state in job history"),
			)
		} else if count > 0 {
			d.logger.Info("marked interrupted jobs failed", logging.Int64("count", count))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.parts.Workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if d.parts.Server != nil {
		if err := d.parts.Server.Start(runCtx); err != nil {
			cancel()
			d.parts.Workflow.Stop()
			_ = d.lock.Unlock()
			return fmt.Errorf("start api: %w", err)
		}
	}
	if d.parts.Intake != nil {
		d.parts.Intake.Start(runCtx)
	}
	if d.parts.Poller != nil && d.pollInterval() > 0 && len(d.cfg.Reddit.Subreddits) > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.parts.Poller.Poll(runCtx, d.cfg.Reddit.Subreddits, d.pollInterval()); err != nil {
				d.logger.Error("story poller stopped", logging.Error(err))
			}
		}()
	}
	if d.parts.Sweep != nil && d.parts.SweepInterval > 0 {
		d.wg.Add(1)
		go d.sweepLoop(runCtx)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("storyreel server started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.apiAddr()),
	)
	return nil
}

// Stop stops background processing and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.parts.Server != nil {
		d.parts.Server.Stop()
	}
	if d.parts.Intake != nil {
		if err := d.parts.Intake.Close(); err != nil {
			d.logger.Warn("failed to close intake", logging.Error(err))
		}
	}
	d.wg.Wait()
	d.parts.Workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release server lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("storyreel server stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.parts.Workflow.Status(),
		APIAddress:   d.apiAddr(),
		Polling:      d.parts.Poller != nil && d.pollInterval() > 0 && len(d.cfg.Reddit.Subreddits) > 0,
		Intake:       d.parts.Intake != nil,
		JobsDBPath:   d.cfg.JobsDatabasePath(),
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.parts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.parts.Sweep(ctx)
		}
	}
}

func (d *Daemon) pollInterval() time.Duration {
	return time.Duration(d.cfg.Reddit.PollIntervalSeconds) * time.Second
}

func (d *Daemon) apiAddr() string {
	if d.parts.Server == nil {
		return ""
	}
	return d.parts.Server.Addr()
}
