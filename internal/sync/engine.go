// Package sync provides the push-then-pull reconciliation engine between the
// local store and the remote relational backend.
//
// The engine is best-effort by contract: preconditions failing (offline,
// unauthenticated, remote unconfigured) make an invocation a silent no-op,
// every remote call is independently error-isolated, and no error ever
// propagates to the caller. Re-running after a partial failure is safe
// because each run re-evaluates the synced flags from scratch.
package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kimhsiao/littlemoments/backend/internal/db"
	"github.com/kimhsiao/littlemoments/backend/internal/logging"
	"github.com/kimhsiao/littlemoments/backend/internal/models"
	"github.com/kimhsiao/littlemoments/backend/internal/remote"
)

// Status represents the current sync status.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusFailed  Status = "failed"
)

// Result summarizes one sync invocation.
type Result struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Pushed    int // records pushed and confirmed remotely
	Pulled    int // remote records written into the local store
	Protected int // remote records skipped to protect dirty local copies
	Failures  int // error-isolated steps that failed this run
	Error     string
}

// Syncer is the trigger surface consumed by the scheduler and the facade.
type Syncer interface {
	Sync(ctx context.Context) *Result
}

// Notifier observes the lifecycle of sync runs. Skipped invocations (offline,
// unconfigured, unauthenticated, already in flight) emit nothing. Every run
// that actually executes notifies, no matter which trigger started it.
type Notifier interface {
	SyncStarted()
	SyncFinished(*Result)
}

// Engine reconciles the local store with the remote store: push dirty
// records first (profiles before memories and growth), then pull each
// collection while protecting anything still locally modified.
type Engine struct {
	store  *db.Store
	remote remote.Client
	net    Connectivity

	inFlight atomic.Bool

	mu       sync.Mutex
	status   Status
	lastSync *time.Time
	lastErr  error
	notifier Notifier
}

var _ Syncer = (*Engine)(nil)

// NewEngine creates a new Engine. The remote client and connectivity signal
// are injected so tests can substitute doubles.
func NewEngine(store *db.Store, remoteClient remote.Client, net Connectivity) *Engine {
	return &Engine{
		store:  store,
		remote: remoteClient,
		net:    net,
		status: StatusIdle,
	}
}

// SetNotifier installs a lifecycle observer, typically the WebSocket hub.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

func (e *Engine) currentNotifier() Notifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notifier
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastSync returns the timestamp of the last completed sync, or nil.
func (e *Engine) LastSync() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// LastError returns the last sync error, or nil.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Sync performs one push-then-pull cycle. It returns nil without doing any
// work when preconditions fail or when another sync is already in flight
// (re-entrant calls are dropped, not queued).
func (e *Engine) Sync(ctx context.Context) *Result {
	if e.net == nil || !e.net.Online() {
		logging.Debug("sync skipped: offline")
		return nil
	}
	if e.remote == nil || !e.remote.Configured() {
		logging.Debug("sync skipped: remote store not configured")
		return nil
	}
	if !e.net.Authenticated() {
		logging.Debug("sync skipped: no authenticated session")
		return nil
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		logging.Debug("sync skipped: already in progress")
		return nil
	}
	defer e.inFlight.Store(false)

	e.setStatus(StatusSyncing)
	result := &Result{StartTime: time.Now()}
	logging.Info("sync started")
	notifier := e.currentNotifier()
	if notifier != nil {
		notifier.SyncStarted()
	}

	// Phase 1: push, profiles first so memories and growth land after the
	// profile they reference. Each step is isolated: a failed table leaves
	// its records dirty for the next run and does not abort the rest.
	e.pushProfiles(ctx, result)
	e.pushMemories(ctx, result)
	e.pushGrowth(ctx, result)

	// Phase 2: pull, no ordering dependency between collections.
	e.pullProfiles(ctx, result)
	e.pullMemories(ctx, result)
	e.pullGrowth(ctx, result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	if result.Failures > 0 {
		e.status = StatusFailed
	} else {
		e.status = StatusIdle
		e.lastErr = nil
	}
	e.lastSync = &result.EndTime
	e.mu.Unlock()

	logging.Info("sync finished", map[string]interface{}{
		"pushed":    result.Pushed,
		"pulled":    result.Pulled,
		"protected": result.Protected,
		"failures":  result.Failures,
		"duration":  result.Duration.String(),
	})
	if notifier != nil {
		notifier.SyncFinished(result)
	}
	return result
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

// stepFailed records an isolated step failure without aborting the run.
func (e *Engine) stepFailed(result *Result, step string, err error) {
	result.Failures++
	if result.Error == "" {
		result.Error = step + ": " + err.Error()
	}
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	logging.Error("sync step failed", err, map[string]interface{}{"step": step})
}

// =====================================================
// Phase 1: Push (local -> remote)
// =====================================================

func (e *Engine) pushProfiles(ctx context.Context, result *Result) {
	profiles, err := e.store.ListUnsyncedProfiles()
	if err != nil {
		e.stepFailed(result, "list unsynced profiles", err)
		return
	}

	// The empty-name bootstrap profile is never pushed.
	toPush := make([]*models.ChildProfile, 0, len(profiles))
	for _, p := range profiles {
		if !p.IsBootstrap() {
			toPush = append(toPush, p)
		}
	}
	if len(toPush) == 0 {
		return
	}

	if err := e.remote.UpsertProfiles(ctx, toPush); err != nil {
		// synced stays 0; the next run retries.
		e.stepFailed(result, "push profiles", err)
		return
	}

	ids := make([]models.UUID, len(toPush))
	for i, p := range toPush {
		ids[i] = p.ID
	}
	if err := e.store.MarkProfilesSynced(ids); err != nil {
		e.stepFailed(result, "mark profiles synced", err)
		return
	}
	result.Pushed += len(toPush)
}

func (e *Engine) pushMemories(ctx context.Context, result *Result) {
	memories, err := e.store.ListUnsyncedMemories()
	if err != nil {
		e.stepFailed(result, "list unsynced memories", err)
		return
	}
	if len(memories) == 0 {
		return
	}

	if err := e.remote.UpsertMemories(ctx, memories); err != nil {
		e.stepFailed(result, "push memories", err)
		return
	}

	ids := make([]models.UUID, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	if err := e.store.MarkMemoriesSynced(ids); err != nil {
		e.stepFailed(result, "mark memories synced", err)
		return
	}
	result.Pushed += len(memories)
}

func (e *Engine) pushGrowth(ctx context.Context, result *Result) {
	records, err := e.store.ListUnsyncedGrowth()
	if err != nil {
		e.stepFailed(result, "list unsynced growth", err)
		return
	}
	if len(records) == 0 {
		return
	}

	if err := e.remote.UpsertGrowth(ctx, records); err != nil {
		e.stepFailed(result, "push growth", err)
		return
	}

	ids := make([]models.UUID, len(records))
	for i, g := range records {
		ids[i] = g.ID
	}
	if err := e.store.MarkGrowthSynced(ids); err != nil {
		e.stepFailed(result, "mark growth synced", err)
		return
	}
	result.Pushed += len(records)
}

// =====================================================
// Phase 2: Pull (remote -> local)
// =====================================================

func (e *Engine) pullProfiles(ctx context.Context, result *Result) {
	remoteProfiles, err := e.remote.FetchProfiles(ctx)
	if err != nil {
		e.stepFailed(result, "fetch profiles", err)
		return
	}

	// Dirty-row protection runs inside the store's write transaction, so a
	// local edit racing this pull cannot slip past it. The empty-name
	// bootstrap profile is the one dirty row a remote copy may replace.
	written, err := e.store.PutProfilesSynced(remoteProfiles)
	if err != nil {
		e.stepFailed(result, "store pulled profiles", err)
		return
	}
	result.Pulled += written
	result.Protected += len(remoteProfiles) - written
}

func (e *Engine) pullMemories(ctx context.Context, result *Result) {
	remoteMemories, err := e.remote.FetchMemories(ctx)
	if err != nil {
		e.stepFailed(result, "fetch memories", err)
		return
	}

	written, err := e.store.PutMemoriesSynced(remoteMemories)
	if err != nil {
		e.stepFailed(result, "store pulled memories", err)
		return
	}
	result.Pulled += written
	result.Protected += len(remoteMemories) - written
}

func (e *Engine) pullGrowth(ctx context.Context, result *Result) {
	remoteGrowth, err := e.remote.FetchGrowth(ctx)
	if err != nil {
		e.stepFailed(result, "fetch growth", err)
		return
	}

	written, err := e.store.PutGrowthSynced(remoteGrowth)
	if err != nil {
		e.stepFailed(result, "store pulled growth", err)
		return
	}
	result.Pulled += written
	result.Protected += len(remoteGrowth) - written
}
