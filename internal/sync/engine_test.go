// Package sync provides unit tests for the push/pull reconciliation engine.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kimhsiao/littlemoments/backend/internal/db"
	"github.com/kimhsiao/littlemoments/backend/internal/models"
	"github.com/kimhsiao/littlemoments/backend/internal/remote"
)

// stubNet is a fixed Connectivity signal.
type stubNet struct {
	online bool
	authed bool
}

func (s stubNet) Online() bool        { return s.online }
func (s stubNet) Authenticated() bool { return s.authed }

var onlineAuthed = stubNet{online: true, authed: true}

func setupStore(t *testing.T) *db.Store {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	// A second connection to :memory: would see a different database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.NewMigrator(sqlDB).Migrate())
	return db.NewStore(sqlDB)
}

func newTestEngine(t *testing.T, net Connectivity) (*Engine, *db.Store, *remote.Fake) {
	t.Helper()
	store := setupStore(t)
	fake := remote.NewFake()
	return NewEngine(store, fake, net), store, fake
}

func putDirtyProfile(t *testing.T, store *db.Store, id, name string) {
	t.Helper()
	require.NoError(t, store.PutProfile(&models.ChildProfile{
		ID: models.UUID(id), Name: name, Gender: models.GenderBoy, Synced: models.SyncPending,
	}))
}

func putDirtyMemory(t *testing.T, store *db.Store, id, childID, title string) {
	t.Helper()
	require.NoError(t, store.PutMemory(&models.Memory{
		ID: models.UUID(id), ChildID: models.UUID(childID), Title: title,
		Date: "2025-06-01", Synced: models.SyncPending,
	}))
}

func TestSyncSkippedOffline(t *testing.T) {
	engine, store, fake := newTestEngine(t, stubNet{online: false, authed: true})
	putDirtyMemory(t, store, "m1", "c1", "First Steps")

	assert.Nil(t, engine.Sync(context.Background()))

	// No remote call was made and the record stayed dirty.
	assert.Empty(t, fake.Calls)
	got, err := store.GetMemory("m1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, got.Synced)
}

func TestSyncSkippedUnauthenticated(t *testing.T) {
	engine, _, fake := newTestEngine(t, stubNet{online: true, authed: false})
	assert.Nil(t, engine.Sync(context.Background()))
	assert.Empty(t, fake.Calls)
}

func TestSyncSkippedUnconfiguredRemote(t *testing.T) {
	engine, _, fake := newTestEngine(t, onlineAuthed)
	fake.Unconfigured = true
	assert.Nil(t, engine.Sync(context.Background()))
	assert.Empty(t, fake.Calls)
}

func TestPushFlipsSyncedFlag(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyProfile(t, store, "p1", "Alice")
	putDirtyMemory(t, store, "m1", "p1", "First Steps")

	result := engine.Sync(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Pushed)
	assert.Zero(t, result.Failures)

	assert.Contains(t, fake.Profiles, models.UUID("p1"))
	assert.Contains(t, fake.Memories, models.UUID("m1"))

	p, err := store.GetProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncDone, p.Synced)
	m, err := store.GetMemory("m1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncDone, m.Synced)
}

// The bootstrap profile is never included in any push payload.
func TestBootstrapProfileNeverPushed(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyProfile(t, store, "boot", "")
	putDirtyProfile(t, store, "p1", "Alice")

	engine.Sync(context.Background())

	assert.NotContains(t, fake.Profiles, models.UUID("boot"))
	assert.Contains(t, fake.Profiles, models.UUID("p1"))

	// Not pushed means not flipped either.
	boot, err := store.GetProfile("boot")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, boot.Synced)
}

// Remote-only records land locally with synced=1.
func TestPullNewRemoteRecords(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	fake.Memories["X"] = &models.Memory{ID: "X", ChildID: "c1", Title: "Remote Memory", Date: "2025-02-02"}

	result := engine.Sync(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Pulled)

	got, err := store.GetMemory("X")
	require.NoError(t, err)
	assert.Equal(t, models.SyncDone, got.Synced)
	assert.Equal(t, "Remote Memory", got.Title)
}

// A pull must never overwrite a locally dirty record.
func TestPullProtectsDirtyLocalRecords(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)

	// Local dirty edit, with push disabled so it stays dirty through pull.
	putDirtyMemory(t, store, "m1", "c1", "Local Edit")
	fake.UpsertMemoryErr = errors.New("remote write refused")
	fake.Memories["m1"] = &models.Memory{ID: "m1", ChildID: "c1", Title: "Stale Remote"}

	result := engine.Sync(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Protected)

	got, err := store.GetMemory("m1")
	require.NoError(t, err)
	assert.Equal(t, "Local Edit", got.Title)
	assert.Equal(t, models.SyncPending, got.Synced)
}

// A record dirtied while the pull is already in flight must survive: the
// dirty check runs inside the store's write transaction, so there is no
// window between reading the dirty set and writing the remote rows.
func TestPullProtectsRecordDirtiedMidRun(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	fake.Memories["m1"] = &models.Memory{ID: "m1", ChildID: "c1", Title: "Remote Copy", Date: "2025-02-02"}

	// The first fetch of the run lands the local edit after the push phase
	// has finished but before the remote memories are written back.
	fake.FetchHook = func() {
		fake.FetchHook = nil
		putDirtyMemory(t, store, "m1", "c1", "Mid-Run Edit")
	}

	result := engine.Sync(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Protected)

	got, err := store.GetMemory("m1")
	require.NoError(t, err)
	assert.Equal(t, "Mid-Run Edit", got.Title)
	assert.Equal(t, models.SyncPending, got.Synced)
}

// The pull-protection restriction: an empty-name bootstrap profile does not
// block a real remote profile with the same id from replacing it.
func TestPullOverwritesBootstrapProfile(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyProfile(t, store, "p1", "")
	fake.Profiles["p1"] = &models.ChildProfile{ID: "p1", Name: "Alice", Gender: models.GenderGirl}

	engine.Sync(context.Background())

	got, err := store.GetProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, models.SyncDone, got.Synced)
}

// A local dirty edit wins over a stale remote copy; after push then
// pull both sides hold the local value and the flag is 1.
func TestPushThenPullConvergesToLocalEdit(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyProfile(t, store, "Y", "Alice")
	fake.Profiles["Y"] = &models.ChildProfile{ID: "Y", Name: "Bob", Gender: models.GenderBoy}

	result := engine.Sync(context.Background())
	require.NotNil(t, result)
	assert.Zero(t, result.Failures)

	assert.Equal(t, "Alice", fake.Profiles["Y"].Name)
	got, err := store.GetProfile("Y")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, models.SyncDone, got.Synced)
}

// Two growth entries for the same child and month collapse
// to a single remote row holding the most recent values.
func TestGrowthCompositeKeyCollapse(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g1", ChildID: "c1", Month: 6, Height: 66.0, Weight: 7.2}))
	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g2", ChildID: "c1", Month: 6, Height: 67.5, Weight: 7.6}))

	engine.Sync(context.Background())

	require.Len(t, fake.Growth, 1)
	for _, g := range fake.Growth {
		assert.Equal(t, 67.5, g.Height)
		assert.Equal(t, 7.6, g.Weight)
	}
}

// Re-pushing (after a retry) never duplicates remote rows.
func TestIdempotentPush(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyMemory(t, store, "m1", "c1", "Once")

	engine.Sync(context.Background())
	// Dirty it again with the same id and sync again.
	putDirtyMemory(t, store, "m1", "c1", "Once, edited")
	engine.Sync(context.Background())

	assert.Len(t, fake.Memories, 1)
	assert.Equal(t, "Once, edited", fake.Memories["m1"].Title)
}

// A failure in one collection must not prevent the others from syncing.
func TestPartialPushFailureIsIsolated(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyProfile(t, store, "p1", "Alice")
	putDirtyMemory(t, store, "m1", "p1", "First Steps")
	fake.UpsertProfileErr = errors.New("profiles table unavailable")

	result := engine.Sync(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Failures)
	assert.Equal(t, StatusFailed, engine.Status())

	// Profile push failed: stays dirty for the next run.
	p, err := store.GetProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, p.Synced)

	// Memory push still went through.
	m, err := store.GetMemory("m1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncDone, m.Synced)
	assert.Contains(t, fake.Memories, models.UUID("m1"))
}

// Repeated syncs converge; once no push fails, everything is synced=1
// and both sides hold identical data.
func TestConvergenceAfterTransientFailure(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyProfile(t, store, "p1", "Alice")
	putDirtyMemory(t, store, "m1", "p1", "First Steps")

	fake.UpsertMemoryErr = errors.New("transient")
	engine.Sync(context.Background())

	fake.UpsertMemoryErr = nil
	result := engine.Sync(context.Background())
	require.NotNil(t, result)
	assert.Zero(t, result.Failures)
	assert.Equal(t, StatusIdle, engine.Status())

	for _, id := range []string{"m1"} {
		m, err := store.GetMemory(id)
		require.NoError(t, err)
		assert.Equal(t, models.SyncDone, m.Synced)
	}
	profiles, err := store.ListUnsyncedProfiles()
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Equal(t, "First Steps", fake.Memories["m1"].Title)
	assert.Equal(t, "Alice", fake.Profiles["p1"].Name)
}

// Re-entrant invocations are dropped, not queued.
func TestSingleFlightGuard(t *testing.T) {
	engine, _, _ := newTestEngine(t, onlineAuthed)

	engine.inFlight.Store(true)
	assert.Nil(t, engine.Sync(context.Background()))
	engine.inFlight.Store(false)

	require.NotNil(t, engine.Sync(context.Background()))
}

func TestConcurrentSyncInvocations(t *testing.T) {
	engine, store, _ := newTestEngine(t, onlineAuthed)
	putDirtyProfile(t, store, "p1", "Alice")

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Sync(context.Background())
		}(i)
	}
	wg.Wait()

	// At least one invocation ran; the rest may have been dropped by the
	// single-flight guard, but none may have errored.
	ran := 0
	for _, r := range results {
		if r != nil {
			ran++
			assert.Zero(t, r.Failures)
		}
	}
	assert.GreaterOrEqual(t, ran, 1)
}

type recordingNotifier struct {
	started  int
	finished []*Result
}

func (n *recordingNotifier) SyncStarted()           { n.started++ }
func (n *recordingNotifier) SyncFinished(r *Result) { n.finished = append(n.finished, r) }

// Every run that executes notifies its observer, regardless of which
// trigger started it; skipped invocations stay silent.
func TestNotifierObservesLifecycle(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	n := &recordingNotifier{}
	engine.SetNotifier(n)
	putDirtyMemory(t, store, "m1", "c1", "First Steps")

	engine.Sync(context.Background())
	require.Equal(t, 1, n.started)
	require.Len(t, n.finished, 1)
	assert.Equal(t, 1, n.finished[0].Pushed)
	assert.Zero(t, n.finished[0].Failures)

	// A failing run still notifies, carrying the failure count.
	putDirtyMemory(t, store, "m2", "c1", "Second Steps")
	fake.UpsertMemoryErr = errors.New("remote down")
	engine.Sync(context.Background())
	require.Len(t, n.finished, 2)
	assert.Equal(t, 1, n.finished[1].Failures)
	assert.NotEmpty(t, n.finished[1].Error)
}

func TestNotifierSilentOnSkippedRun(t *testing.T) {
	engine, _, _ := newTestEngine(t, stubNet{online: false, authed: true})
	n := &recordingNotifier{}
	engine.SetNotifier(n)

	assert.Nil(t, engine.Sync(context.Background()))
	assert.Zero(t, n.started)
	assert.Empty(t, n.finished)
}

func TestFetchFailureSkipsPullOnly(t *testing.T) {
	engine, store, fake := newTestEngine(t, onlineAuthed)
	putDirtyMemory(t, store, "m1", "c1", "First Steps")
	fake.FetchErr = errors.New("read timeout")

	result := engine.Sync(context.Background())
	require.NotNil(t, result)

	// Push still succeeded despite every fetch failing.
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 3, result.Failures)
	assert.Contains(t, fake.Memories, models.UUID("m1"))
}
