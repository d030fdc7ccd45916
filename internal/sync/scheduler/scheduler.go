// Package scheduler provides background sync scheduling.
//
// Two triggers beyond the facade's post-mutation one live here: a periodic
// tick while a session is active, and an immediate run when connectivity or
// the session is regained. The engine's own single-flight guard makes every
// overlapping trigger a no-op, so the scheduler never has to coordinate with
// the facade.
package scheduler

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/kimhsiao/littlemoments/backend/internal/logging"
	"github.com/kimhsiao/littlemoments/backend/internal/sync"
)

// Config holds scheduler configuration.
type Config struct {
	SyncInterval time.Duration // how often to sync in the background
	SyncTimeout  time.Duration // per-run deadline for a background sync
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval: 15 * time.Minute,
		SyncTimeout:  5 * time.Minute,
	}
}

// Scheduler runs background syncs on a timer and on regained connectivity.
type Scheduler struct {
	engine   sync.Syncer
	net      *sync.NetState
	interval time.Duration
	timeout  time.Duration

	mu        stdsync.Mutex
	isRunning bool
	stopCh    chan struct{}
	wg        stdsync.WaitGroup
}

// New creates a new Scheduler. The NetState's regain callbacks are wired so
// a sync fires as soon as the shell reports the app online and signed in.
func New(engine sync.Syncer, net *sync.NetState, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Scheduler{
		engine:   engine,
		net:      net,
		interval: config.SyncInterval,
		timeout:  config.SyncTimeout,
		stopCh:   make(chan struct{}),
	}
	net.OnRegain(func() {
		if s.IsRunning() {
			s.runSync(context.Background())
		}
	})
	return s
}

// Start starts the background sync loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx, stopCh)

	logging.Info("background sync scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})
}

// Stop stops the scheduler gracefully. A sync already in flight is not
// interrupted; it finishes on its own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	stopCh := s.stopCh
	s.mu.Unlock()

	close(stopCh)
	s.wg.Wait()

	logging.Info("background sync scheduler stopped")
}

// IsRunning reports whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// TriggerSync requests an immediate background sync.
func (s *Scheduler) TriggerSync(ctx context.Context) {
	go s.runSync(ctx)
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

// runSync executes one engine invocation under the configured timeout. The
// engine decides for itself whether preconditions hold; a nil result means
// the run was skipped.
func (s *Scheduler) runSync(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.engine.Sync(syncCtx)
	if result == nil {
		return
	}
	if result.Failures > 0 {
		logging.Warn("background sync finished with failures", map[string]interface{}{
			"failures": result.Failures,
			"error":    result.Error,
		})
	}
}
