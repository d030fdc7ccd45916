// Package remote provides the client for the hosted relational backend.
//
// The remote store mirrors the local collections in three tables:
// child_profile, memories and growth_data. The local-only synced flag is
// never written remotely. All calls are gated by Configured(): an
// unconfigured client turns the whole sync into a silent no-op.
package remote

import (
	"context"

	"github.com/kimhsiao/littlemoments/backend/internal/models"
)

// Client defines the per-table operations the sync engine and the CRUD
// facade need from the remote store. Implementations must be safe for
// concurrent use.
type Client interface {
	// Configured reports whether a remote backend is reachable/configured
	// at all. When false, sync short-circuits at entry.
	Configured() bool

	// Ping verifies connectivity to the backend.
	Ping(ctx context.Context) error

	// Upserts. Profile and memory upserts conflict on id; growth upserts
	// conflict on the composite ("childId", month) so two entries for the
	// same child and month collapse to one remote row.
	UpsertProfiles(ctx context.Context, profiles []*models.ChildProfile) error
	UpsertMemories(ctx context.Context, memories []*models.Memory) error
	UpsertGrowth(ctx context.Context, records []*models.GrowthData) error

	// Full-set fetches for the pull phase. The engine applies its own
	// local-protection filter and must not assume server-side filtering.
	FetchProfiles(ctx context.Context) ([]*models.ChildProfile, error)
	FetchMemories(ctx context.Context) ([]*models.Memory, error)
	FetchGrowth(ctx context.Context) ([]*models.GrowthData, error)

	// Deletes, used best-effort by the facade.
	DeleteProfile(ctx context.Context, id string) error
	DeleteMemory(ctx context.Context, id string) error
	DeleteGrowth(ctx context.Context, id string) error
	DeleteMemoriesByChild(ctx context.Context, childID string) error
	DeleteGrowthByChild(ctx context.Context, childID string) error
}
