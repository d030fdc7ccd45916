// Package service provides the CRUD facade the UI talks to.
//
// Every read is served from the local store only, so the UI stays responsive
// fully offline. Every write mutates the local store synchronously with
// synced=0, then fires the sync engine without waiting for it. Deletes
// additionally attempt an immediate best-effort remote delete when online;
// an offline delete is not queued, so the remote copy may reappear on a
// later pull.
package service

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/kimhsiao/littlemoments/backend/internal/db"
	"github.com/kimhsiao/littlemoments/backend/internal/errors"
	"github.com/kimhsiao/littlemoments/backend/internal/logging"
	"github.com/kimhsiao/littlemoments/backend/internal/models"
	"github.com/kimhsiao/littlemoments/backend/internal/remote"
	"github.com/kimhsiao/littlemoments/backend/internal/sync"
	"github.com/kimhsiao/littlemoments/backend/internal/uuid"
)

// defaultSyncTimeout bounds one fire-and-forget sync run.
const defaultSyncTimeout = 5 * time.Minute

// DataService is the sole mutation surface for collaborators.
type DataService struct {
	store  *db.Store
	remote remote.Client
	engine sync.Syncer
	net    sync.Connectivity

	syncTimeout time.Duration
	wg          stdsync.WaitGroup
}

// NewDataService creates the facade. All dependencies are injected; tests
// substitute a fake remote client and a fixed connectivity signal.
func NewDataService(store *db.Store, remoteClient remote.Client, engine sync.Syncer, net sync.Connectivity) *DataService {
	return &DataService{
		store:       store,
		remote:      remoteClient,
		engine:      engine,
		net:         net,
		syncTimeout: defaultSyncTimeout,
	}
}

// InitDB bootstraps the local store: if no profile exists yet, one default
// profile with an empty name is created so the UI always has an active
// profile to bind to. Idempotent.
func (d *DataService) InitDB() error {
	count, err := d.store.CountProfiles()
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to count profiles", err)
	}
	if count > 0 {
		return nil
	}
	bootstrap := &models.ChildProfile{
		ID:     models.UUID(uuid.New()),
		Name:   "",
		DOB:    "",
		Gender: models.GenderBoy,
		Synced: models.SyncPending,
	}
	if err := d.store.PutProfile(bootstrap); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to create bootstrap profile", err)
	}
	logging.Info("created bootstrap profile", map[string]interface{}{"id": bootstrap.ID})
	return nil
}

// GenerateID produces a new collision-resistant identifier.
func (d *DataService) GenerateID() string {
	return uuid.New()
}

// SyncNow triggers a sync and waits for it. Used by the manual trigger.
func (d *DataService) SyncNow(ctx context.Context) *sync.Result {
	return d.engine.Sync(ctx)
}

// Flush waits for all fire-and-forget syncs started by this facade. Used on
// shutdown and by tests.
func (d *DataService) Flush() {
	d.wg.Wait()
}

// triggerSync schedules a detached best-effort sync. The engine's
// single-flight guard coalesces bursts from rapid successive mutations.
func (d *DataService) triggerSync() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.syncTimeout)
		defer cancel()
		d.engine.Sync(ctx)
	}()
}

// =====================================================
// Profiles
// =====================================================

// GetProfiles returns all profiles from the local store.
func (d *DataService) GetProfiles() ([]*models.ChildProfile, error) {
	return d.store.ListProfiles()
}

// SaveProfile upserts a profile and returns its id, assigning one if absent.
func (d *DataService) SaveProfile(p *models.ChildProfile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", errors.Wrap(errors.ErrValidation, "invalid profile", err)
	}
	if p.ID == "" {
		p.ID = models.UUID(uuid.New())
	}
	p.Synced = models.SyncPending
	if err := d.store.PutProfile(p); err != nil {
		return "", errors.Wrap(errors.ErrDatabase, "failed to save profile", err)
	}
	d.triggerSync()
	return string(p.ID), nil
}

// DeleteProfile deletes a profile and cascades to its memories and growth
// records, locally always and remotely best-effort when online.
func (d *DataService) DeleteProfile(id string) error {
	if err := d.store.DeleteProfile(id); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to delete profile", err)
	}
	if err := d.store.DeleteMemoriesByChild(id); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to cascade memories", err)
	}
	if err := d.store.DeleteGrowthByChild(id); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to cascade growth", err)
	}

	d.remoteDelete("profile cascade", func(ctx context.Context) error {
		if err := d.remote.DeleteProfile(ctx, id); err != nil {
			return err
		}
		if err := d.remote.DeleteMemoriesByChild(ctx, id); err != nil {
			return err
		}
		return d.remote.DeleteGrowthByChild(ctx, id)
	})
	return nil
}

// =====================================================
// Memories
// =====================================================

// GetMemories returns a child's memories sorted by date descending. An empty
// childID yields an empty result rather than an error.
func (d *DataService) GetMemories(childID string) ([]*models.Memory, error) {
	if childID == "" {
		return nil, nil
	}
	return d.store.ListMemoriesByChild(childID)
}

// AddMemory upserts a memory by id (re-adding with the same id is the update
// path) and triggers a sync.
func (d *DataService) AddMemory(m *models.Memory) error {
	if m.ID == "" {
		m.ID = models.UUID(uuid.New())
	}
	m.Tags = models.NormalizeTags(m.Tags)
	if err := m.Validate(); err != nil {
		return errors.Wrap(errors.ErrValidation, "invalid memory", err)
	}
	m.Synced = models.SyncPending
	if err := d.store.PutMemory(m); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to save memory", err)
	}
	d.triggerSync()
	return nil
}

// DeleteMemory removes a memory locally and best-effort remotely.
func (d *DataService) DeleteMemory(id string) error {
	if err := d.store.DeleteMemory(id); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to delete memory", err)
	}
	d.remoteDelete("memory", func(ctx context.Context) error {
		return d.remote.DeleteMemory(ctx, id)
	})
	return nil
}

// =====================================================
// Growth
// =====================================================

// GetGrowth returns a child's growth records sorted by month ascending.
func (d *DataService) GetGrowth(childID string) ([]*models.GrowthData, error) {
	if childID == "" {
		return nil, nil
	}
	return d.store.ListGrowthByChild(childID)
}

// SaveGrowth upserts a growth record by id and triggers a sync.
func (d *DataService) SaveGrowth(g *models.GrowthData) error {
	if g.ID == "" {
		g.ID = models.UUID(uuid.New())
	}
	if err := g.Validate(); err != nil {
		return errors.Wrap(errors.ErrValidation, "invalid growth record", err)
	}
	g.Synced = models.SyncPending
	if err := d.store.PutGrowth(g); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to save growth record", err)
	}
	d.triggerSync()
	return nil
}

// DeleteGrowth removes a growth record locally and best-effort remotely.
// An empty id is a no-op.
func (d *DataService) DeleteGrowth(id string) error {
	if id == "" {
		return nil
	}
	if err := d.store.DeleteGrowth(id); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to delete growth record", err)
	}
	d.remoteDelete("growth", func(ctx context.Context) error {
		return d.remote.DeleteGrowth(ctx, id)
	})
	return nil
}

// =====================================================
// Shared
// =====================================================

// ClearLocalData wipes all three local collections. The remote store is
// untouched; a later sync pulls it back.
func (d *DataService) ClearLocalData() error {
	if err := d.store.ClearAll(); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to clear local data", err)
	}
	return nil
}

// remoteDelete runs a best-effort remote delete when online and configured.
// Failures are swallowed: orphaned remote rows are acceptable residue,
// cleaned up by manual intervention or a later cycle.
func (d *DataService) remoteDelete(what string, fn func(ctx context.Context) error) {
	if d.net == nil || !d.net.Online() {
		return
	}
	if d.remote == nil || !d.remote.Configured() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logging.Warn("best-effort remote delete failed", map[string]interface{}{
			"target": what,
			"error":  err.Error(),
		})
	}
}
