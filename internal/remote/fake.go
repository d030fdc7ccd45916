package remote

import (
	"context"
	"strconv"
	"sync"

	"github.com/kimhsiao/littlemoments/backend/internal/models"
)

// Compile-time contract assertion.
var _ Client = (*Fake)(nil)

// Fake is an in-memory Client used by sync engine and facade tests. It
// mirrors the remote schema's keying: profiles and memories by id, growth by
// the composite (childId, month). Per-table errors can be injected to
// exercise partial-failure paths.
type Fake struct {
	mu sync.Mutex

	Profiles map[models.UUID]*models.ChildProfile
	Memories map[models.UUID]*models.Memory
	Growth   map[string]*models.GrowthData // keyed by childId/month

	Unconfigured bool

	// Injected failures, by operation.
	UpsertProfileErr error
	UpsertMemoryErr  error
	UpsertGrowthErr  error
	FetchErr         error
	DeleteErr        error

	// FetchHook, when set, runs at the start of every fetch. Tests use it to
	// interleave local writes with an in-flight pull.
	FetchHook func()

	// Calls counts remote operations by name, for offline-guard tests.
	Calls map[string]int
}

// NewFake creates an empty fake remote store.
func NewFake() *Fake {
	return &Fake{
		Profiles: make(map[models.UUID]*models.ChildProfile),
		Memories: make(map[models.UUID]*models.Memory),
		Growth:   make(map[string]*models.GrowthData),
		Calls:    make(map[string]int),
	}
}

func growthKey(childID models.UUID, month int) string {
	return string(childID) + "/" + strconv.Itoa(month)
}

func (f *Fake) record(op string) {
	f.Calls[op]++
}

// Configured implements Client.
func (f *Fake) Configured() bool {
	return !f.Unconfigured
}

// Ping implements Client.
func (f *Fake) Ping(ctx context.Context) error {
	return nil
}

// UpsertProfiles implements Client.
func (f *Fake) UpsertProfiles(ctx context.Context, profiles []*models.ChildProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert_profiles")
	if f.UpsertProfileErr != nil {
		return f.UpsertProfileErr
	}
	for _, p := range profiles {
		clone := *p
		clone.Synced = 0 // the remote schema has no synced column
		f.Profiles[p.ID] = &clone
	}
	return nil
}

// UpsertMemories implements Client.
func (f *Fake) UpsertMemories(ctx context.Context, memories []*models.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert_memories")
	if f.UpsertMemoryErr != nil {
		return f.UpsertMemoryErr
	}
	for _, m := range memories {
		clone := *m
		clone.Synced = 0
		f.Memories[m.ID] = &clone
	}
	return nil
}

// UpsertGrowth implements Client. Conflicts on (childId, month).
func (f *Fake) UpsertGrowth(ctx context.Context, records []*models.GrowthData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert_growth")
	if f.UpsertGrowthErr != nil {
		return f.UpsertGrowthErr
	}
	for _, g := range records {
		clone := *g
		clone.Synced = 0
		f.Growth[growthKey(g.ChildID, g.Month)] = &clone
	}
	return nil
}

// FetchProfiles implements Client.
func (f *Fake) FetchProfiles(ctx context.Context) ([]*models.ChildProfile, error) {
	if f.FetchHook != nil {
		f.FetchHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fetch_profiles")
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	out := make([]*models.ChildProfile, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

// FetchMemories implements Client.
func (f *Fake) FetchMemories(ctx context.Context) ([]*models.Memory, error) {
	if f.FetchHook != nil {
		f.FetchHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fetch_memories")
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	out := make([]*models.Memory, 0, len(f.Memories))
	for _, m := range f.Memories {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

// FetchGrowth implements Client.
func (f *Fake) FetchGrowth(ctx context.Context) ([]*models.GrowthData, error) {
	if f.FetchHook != nil {
		f.FetchHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fetch_growth")
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	out := make([]*models.GrowthData, 0, len(f.Growth))
	for _, g := range f.Growth {
		clone := *g
		out = append(out, &clone)
	}
	return out, nil
}

// DeleteProfile implements Client.
func (f *Fake) DeleteProfile(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete_profile")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.Profiles, models.UUID(id))
	return nil
}

// DeleteMemory implements Client.
func (f *Fake) DeleteMemory(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete_memory")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.Memories, models.UUID(id))
	return nil
}

// DeleteGrowth implements Client.
func (f *Fake) DeleteGrowth(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete_growth")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for key, g := range f.Growth {
		if string(g.ID) == id {
			delete(f.Growth, key)
		}
	}
	return nil
}

// DeleteMemoriesByChild implements Client.
func (f *Fake) DeleteMemoriesByChild(ctx context.Context, childID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete_memories_by_child")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for id, m := range f.Memories {
		if string(m.ChildID) == childID {
			delete(f.Memories, id)
		}
	}
	return nil
}

// DeleteGrowthByChild implements Client.
func (f *Fake) DeleteGrowthByChild(ctx context.Context, childID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete_growth_by_child")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for key, g := range f.Growth {
		if string(g.ChildID) == childID {
			delete(f.Growth, key)
		}
	}
	return nil
}
