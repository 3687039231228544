package daemon_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/daemon"
	"storyreel/internal/logging"
	"storyreel/internal/testsupport"
	"storyreel/internal/workflow"
)

type fakeWorkflow struct {
	mu       sync.Mutex
	running  bool
	startErr error
	starts   int
}

func (f *fakeWorkflow) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.running = true
	return nil
}

func (f *fakeWorkflow) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeWorkflow) Status() workflow.StatusSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return workflow.StatusSummary{Running: f.running}
}

type fakeRecovery struct{ calls atomic.Int32 }

func (f *fakeRecovery) MarkInterrupted(context.Context) (int64, error) {
	f.calls.Add(1)
	return 2, nil
}

type fakePoller struct {
	started chan []string
}

func (f *fakePoller) Poll(ctx context.Context, subreddits []string, _ time.Duration) error {
	f.started <- subreddits
	<-ctx.Done()
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reddit.Subreddits = []string{"tifu"}
	cfg.Reddit.PollIntervalSeconds = 60

	wf := &fakeWorkflow{}
	recovery := &fakeRecovery{}
	poller := &fakePoller{started: make(chan []string, 1)}
	d, err := daemon.New(cfg, daemon.Components{Workflow: wf, Jobs: recovery, Poller: poller}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case subs := <-poller.started:
		if len(subs) != 1 || subs[0] != "tifu" {
			t.Fatalf("unexpected subreddits %v", subs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller was not started")
	}

	status := d.Status()
	if !status.Running || !status.Workflow.Running || !status.Polling {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q", status.LockFilePath)
	}
	if recovery.calls.Load() != 1 {
		t.Fatalf("expected interrupted jobs to be marked once, got %d", recovery.calls.Load())
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if status := d.Status(); status.Running || status.Workflow.Running {
		t.Fatalf("expected daemon to be stopped, got %+v", status)
	}
}

func TestSecondDaemonCannotTakeLock(t *testing.T) {
	cfg := testConfig(t)
	first, err := daemon.New(cfg, daemon.Components{Workflow: &fakeWorkflow{}}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, daemon.Components{Workflow: &fakeWorkflow{}}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
}

func TestWorkflowFailureReleasesLock(t *testing.T) {
	cfg := testConfig(t)
	failing := &fakeWorkflow{startErr: errors.New("boom")}
	d, err := daemon.New(cfg, daemon.Components{Workflow: failing}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}

	wf := &fakeWorkflow{}
	retry, err := daemon.New(cfg, daemon.Components{Workflow: wf}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := retry.Start(context.Background()); err != nil {
		t.Fatalf("lock should have been released: %v", err)
	}
	retry.Stop()
}

func TestSweepRunsOnInterval(t *testing.T) {
	cfg := testConfig(t)
	swept := make(chan struct{}, 4)
	d, err := daemon.New(cfg, daemon.Components{
		Workflow: &fakeWorkflow{},
		Sweep:    func(context.Context) {
			select {
			case swept <- struct{}{}:
			default:
			}
		},
		SweepInterval: 10 * time.Millisecond,
	}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()
	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}
}

func TestNewRequiresWorkflow(t *testing.T) {
	if _, err := daemon.New(testConfig(t), daemon.Components{}, nil); err == nil {
		t.Fatal("expected error without workflow")
	}
}
