// Package db provides unit tests for the local store.
package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kimhsiao/littlemoments/backend/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// A second connection to :memory: would see a different database.
	db.SetMaxOpenConns(1)
	require.NoError(t, NewMigrator(db).Migrate())
	return db
}

func testProfile(id, name string) *models.ChildProfile {
	return &models.ChildProfile{
		ID:     models.UUID(id),
		Name:   name,
		DOB:    "2024-01-15",
		Gender: models.GenderGirl,
		Synced: models.SyncPending,
	}
}

func testMemory(id, childID, title string) *models.Memory {
	return &models.Memory{
		ID:      models.UUID(id),
		ChildID: models.UUID(childID),
		Title:   title,
		Date:    "2025-06-01",
		Tags:    models.TagList{"milestone"},
		Synced:  models.SyncPending,
	}
}

func TestPutProfileUpsert(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.PutProfile(testProfile("p1", "Alice")))

	// Same ID again must update, not duplicate.
	updated := testProfile("p1", "Alicia")
	require.NoError(t, store.PutProfile(updated))

	count, err := store.CountProfiles()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.GetProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)
	assert.Equal(t, models.SyncPending, got.Synced)
}

func TestListUnsyncedProfiles(t *testing.T) {
	store := NewStore(setupTestDB(t))

	dirty := testProfile("p1", "Alice")
	clean := testProfile("p2", "Ben")
	clean.Synced = models.SyncDone
	require.NoError(t, store.PutProfile(dirty))
	require.NoError(t, store.PutProfile(clean))

	unsynced, err := store.ListUnsyncedProfiles()
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, models.UUID("p1"), unsynced[0].ID)
}

func TestMarkProfilesSynced(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.PutProfile(testProfile("p1", "Alice")))
	require.NoError(t, store.PutProfile(testProfile("p2", "Ben")))

	// Only p1 is marked; p2 must stay dirty.
	require.NoError(t, store.MarkProfilesSynced([]models.UUID{"p1"}))

	p1, err := store.GetProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncDone, p1.Synced)

	p2, err := store.GetProfile("p2")
	require.NoError(t, err)
	assert.Equal(t, models.SyncPending, p2.Synced)
}

func TestPutProfilesSyncedForcesFlag(t *testing.T) {
	store := NewStore(setupTestDB(t))

	remote := testProfile("p1", "Alice")
	remote.Synced = models.SyncPending // pull must override this to 1
	written, err := store.PutProfilesSynced([]*models.ChildProfile{remote})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	got, err := store.GetProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncDone, got.Synced)
}

func TestPutMemoriesSyncedSkipsDirtyRows(t *testing.T) {
	store := NewStore(setupTestDB(t))

	dirty := testMemory("m1", "c1", "Local Edit")
	clean := testMemory("m2", "c1", "Old Title")
	clean.Synced = models.SyncDone
	require.NoError(t, store.PutMemory(dirty))
	require.NoError(t, store.PutMemory(clean))

	remote1 := testMemory("m1", "c1", "Remote Copy")
	remote2 := testMemory("m2", "c1", "New Title")
	written, err := store.PutMemoriesSynced([]*models.Memory{remote1, remote2})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	// The dirty row keeps its local edit and its pending flag.
	m1, err := store.GetMemory("m1")
	require.NoError(t, err)
	assert.Equal(t, "Local Edit", m1.Title)
	assert.Equal(t, models.SyncPending, m1.Synced)

	m2, err := store.GetMemory("m2")
	require.NoError(t, err)
	assert.Equal(t, "New Title", m2.Title)
	assert.Equal(t, models.SyncDone, m2.Synced)
}

func TestPutProfilesSyncedReplacesBootstrapProfile(t *testing.T) {
	store := NewStore(setupTestDB(t))

	// A bootstrap profile is dirty but nameless; a remote copy may replace it.
	bootstrap := testProfile("p1", "")
	named := testProfile("p2", "Local Name")
	require.NoError(t, store.PutProfile(bootstrap))
	require.NoError(t, store.PutProfile(named))

	remote1 := testProfile("p1", "Alice")
	remote2 := testProfile("p2", "Remote Name")
	written, err := store.PutProfilesSynced([]*models.ChildProfile{remote1, remote2})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	p1, err := store.GetProfile("p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p1.Name)
	assert.Equal(t, models.SyncDone, p1.Synced)

	p2, err := store.GetProfile("p2")
	require.NoError(t, err)
	assert.Equal(t, "Local Name", p2.Name)
	assert.Equal(t, models.SyncPending, p2.Synced)
}

func TestMemoriesSortedByDateDescending(t *testing.T) {
	store := NewStore(setupTestDB(t))

	older := testMemory("m1", "c1", "First Smile")
	older.Date = "2025-01-10"
	newer := testMemory("m2", "c1", "First Steps")
	newer.Date = "2025-06-01"
	other := testMemory("m3", "c2", "Other Child")

	require.NoError(t, store.PutMemory(older))
	require.NoError(t, store.PutMemory(newer))
	require.NoError(t, store.PutMemory(other))

	memories, err := store.ListMemoriesByChild("c1")
	require.NoError(t, err)
	require.Len(t, memories, 2)
	assert.Equal(t, models.UUID("m2"), memories[0].ID)
	assert.Equal(t, models.UUID("m1"), memories[1].ID)
}

func TestMemoryTagsRoundTrip(t *testing.T) {
	store := NewStore(setupTestDB(t))

	memory := testMemory("m1", "c1", "Park Day")
	memory.Tags = models.TagList{"outdoors", "summer"}
	require.NoError(t, store.PutMemory(memory))

	got, err := store.GetMemory("m1")
	require.NoError(t, err)
	assert.Equal(t, models.TagList{"outdoors", "summer"}, got.Tags)
}

func TestGrowthSortedByMonthAscending(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g1", ChildID: "c1", Month: 9, Height: 72}))
	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g2", ChildID: "c1", Month: 3, Height: 61}))
	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g3", ChildID: "c2", Month: 1, Height: 54}))

	records, err := store.ListGrowthByChild("c1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 3, records[0].Month)
	assert.Equal(t, 9, records[1].Month)
}

func TestDeleteByChildCascadeBulk(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.PutMemory(testMemory("m1", "c1", "A")))
	require.NoError(t, store.PutMemory(testMemory("m2", "c1", "B")))
	require.NoError(t, store.PutMemory(testMemory("m3", "c2", "C")))
	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g1", ChildID: "c1", Month: 2}))
	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g2", ChildID: "c2", Month: 2}))

	require.NoError(t, store.DeleteMemoriesByChild("c1"))
	require.NoError(t, store.DeleteGrowthByChild("c1"))

	memories, err := store.ListMemoriesByChild("c1")
	require.NoError(t, err)
	assert.Empty(t, memories)

	// Other children untouched.
	others, err := store.ListMemoriesByChild("c2")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	growth, err := store.ListGrowthByChild("c1")
	require.NoError(t, err)
	assert.Empty(t, growth)
}

func TestClearAll(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.PutProfile(testProfile("p1", "Alice")))
	require.NoError(t, store.PutMemory(testMemory("m1", "p1", "A")))
	require.NoError(t, store.PutGrowth(&models.GrowthData{ID: "g1", ChildID: "p1", Month: 1}))

	require.NoError(t, store.ClearAll())

	count, err := store.CountProfiles()
	require.NoError(t, err)
	assert.Zero(t, count)

	memories, err := store.ListMemoriesByChild("p1")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestGetProfileNotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, err := store.GetProfile("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
