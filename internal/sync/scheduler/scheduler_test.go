// Package scheduler provides unit tests for background sync scheduling.
package scheduler

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/littlemoments/backend/internal/sync"
)

// countingSyncer records invocations of Sync.
type countingSyncer struct {
	mu    stdsync.Mutex
	calls int
	done  chan struct{}
}

func newCountingSyncer() *countingSyncer {
	return &countingSyncer{done: make(chan struct{}, 16)}
}

func (c *countingSyncer) Sync(ctx context.Context) *sync.Result {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	select {
	case c.done <- struct{}{}:
	default:
	}
	return &sync.Result{}
}

func (c *countingSyncer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func waitForSync(t *testing.T, c *countingSyncer) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sync invocation")
	}
}

func TestPeriodicSync(t *testing.T) {
	syncer := newCountingSyncer()
	net := sync.NewNetState()
	s := New(syncer, net, &Config{SyncInterval: 20 * time.Millisecond, SyncTimeout: time.Second})

	s.Start(context.Background())
	defer s.Stop()

	waitForSync(t, syncer)
	assert.GreaterOrEqual(t, syncer.count(), 1)
}

func TestStartIsIdempotent(t *testing.T) {
	syncer := newCountingSyncer()
	net := sync.NewNetState()
	s := New(syncer, net, &Config{SyncInterval: time.Hour, SyncTimeout: time.Second})

	s.Start(context.Background())
	s.Start(context.Background())
	require.True(t, s.IsRunning())
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestSyncOnConnectivityRegained(t *testing.T) {
	syncer := newCountingSyncer()
	net := sync.NewNetState()
	net.SetOnline(false)
	s := New(syncer, net, &Config{SyncInterval: time.Hour, SyncTimeout: time.Second})

	s.Start(context.Background())
	defer s.Stop()

	// Sign in while offline: nothing yet. Then connectivity returns.
	net.SetAuthenticated(true)
	net.SetOnline(true)

	waitForSync(t, syncer)
	assert.GreaterOrEqual(t, syncer.count(), 1)
}

func TestNoRegainSyncWhenStopped(t *testing.T) {
	syncer := newCountingSyncer()
	net := sync.NewNetState()
	net.SetOnline(false)
	_ = New(syncer, net, &Config{SyncInterval: time.Hour, SyncTimeout: time.Second})

	// Never started: the regain callback must not fire a sync.
	net.SetAuthenticated(true)
	net.SetOnline(true)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, syncer.count())
}

func TestTriggerSync(t *testing.T) {
	syncer := newCountingSyncer()
	net := sync.NewNetState()
	s := New(syncer, net, &Config{SyncInterval: time.Hour, SyncTimeout: time.Second})

	s.Start(context.Background())
	defer s.Stop()

	s.TriggerSync(context.Background())
	waitForSync(t, syncer)
	assert.GreaterOrEqual(t, syncer.count(), 1)
}
