// Package scheduler runs the background consistency job: a long-lived loop
// that invokes the detection engine on an interval, plus on-demand scans.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/storyweave/continuity/pkg/checkpoint"
	"github.com/storyweave/continuity/pkg/engine"
	"github.com/storyweave/continuity/pkg/store"
	"github.com/storyweave/continuity/pkg/types"
)

const maxBackoff = 300 * time.Second

// Scheduler drives periodic consistency scans. It has two states, Stopped
// and Running; Start and Stop move between them. The loop itself never
// terminates on a scan failure.
type Scheduler struct {
	engine      *engine.Engine
	resolver    *store.ScopeResolver
	checkpoints *checkpoint.Manager
	interval    time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	lastRun *time.Time
}

// New creates a stopped scheduler. A checkpoint manager is optional; when
// present, the last run time is restored from disk.
func New(eng *engine.Engine, resolver *store.ScopeResolver, interval time.Duration, checkpoints *checkpoint.Manager, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		engine:      eng,
		resolver:    resolver,
		checkpoints: checkpoints,
		interval:    interval,
		logger:      logger,
	}
	if checkpoints != nil {
		if cp, err := checkpoints.Latest(); err == nil && cp != nil {
			s.lastRun = &cp.LastRun
		}
	}
	return s
}

// Start transitions to Running and launches the loop. Calling Start on a
// running scheduler is a no-op: there is never a second loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Info("background consistency job is already running")
		return
	}
	s.running = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.logger.Info("starting background consistency job", "interval", s.interval)
	go s.runLoop(ctx, s.done)
}

// Stop transitions to Stopped. Cancellation is cooperative: an in-flight
// scan runs to completion and the loop exits after its current iteration.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("stopping background consistency job")
	cancel()
}

// Wait blocks until the loop goroutine has exited. Useful in tests and
// shutdown paths; Status never needs it.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.scanAll(ctx); err != nil {
				backoff := s.interval / 12
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				s.logger.Error("error during consistency check, backing off",
					"error", err, "backoff", backoff)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
			}
		}
	}
}

// scanAll runs one pass over every registered scope. Per-story failures
// are recorded in checkpoints; the first one is also returned so the loop
// can back off when the store is down.
func (s *Scheduler) scanAll(ctx context.Context) error {
	var firstErr error
	for _, scope := range s.resolver.Scopes() {
		result := s.engine.RunConsistencyScan(ctx, scope.StoryID, scope.UserID)
		s.noteRun(result)
		if result.Error != "" && firstErr == nil {
			firstErr = &scanError{storyID: scope.StoryID, message: result.Error}
		}
	}
	now := time.Now().UTC()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()
	return firstErr
}

type scanError struct {
	storyID string
	message string
}

func (e *scanError) Error() string {
	return "scan of story " + e.storyID + " failed: " + e.message
}

// RunOnce triggers an immediate out-of-band scan for one story, independent
// of the loop state. The result always comes back; failures are inside it.
func (s *Scheduler) RunOnce(ctx context.Context, storyID, userID string) *types.ContradictionDetectionResult {
	s.logger.Info("running manual consistency check", "story_id", storyID)
	result := s.engine.RunConsistencyScan(ctx, storyID, userID)
	s.noteRun(result)
	now := time.Now().UTC()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()
	return result
}

func (s *Scheduler) noteRun(result *types.ContradictionDetectionResult) {
	if s.checkpoints == nil {
		return
	}
	cp := &checkpoint.ScanCheckpoint{
		StoryID:             result.StoryID,
		LastRun:             time.Now().UTC(),
		TotalContradictions: result.TotalContradictions,
		ScanDurationSeconds: result.ScanDurationSeconds,
		LastError:           result.Error,
	}
	if err := s.checkpoints.Save(cp); err != nil {
		s.logger.Warn("failed to save scan checkpoint",
			"story_id", result.StoryID, "error", err)
	}
}

// Status reports the job state. It never blocks on an active scan: the
// report is read from persisted records, not from the loop.
func (s *Scheduler) Status(ctx context.Context, storyID, userID string) types.SchedulerStatus {
	s.mu.Lock()
	status := types.SchedulerStatus{
		IsRunning:   s.running,
		RunInterval: s.interval,
		LastRun:     s.lastRun,
	}
	s.mu.Unlock()
	if storyID != "" {
		status.ContradictionReport = s.engine.GetContradictionReport(ctx, storyID, userID)
	}
	return status
}
